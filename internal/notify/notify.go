package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes fire-and-forget events over Redis pub/sub. The realtime
// hub subscribes to these channels and fans messages out to connected
// websocket clients; a missed publish is never a correctness problem because
// clients reconcile against authoritative refetches.
type Notifier struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Event is the wire shape pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	GameID  int         `json:"game_id,omitempty"`
	RoomID  int         `json:"room_id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// UserChannel is the pub/sub channel for a single player's events.
func UserChannel(playerID int) string {
	return fmt.Sprintf("user:%d:events", playerID)
}

// RoomChannel is the pub/sub channel for a lobby's events.
func RoomChannel(roomID int) string {
	return fmt.Sprintf("room:%d:events", roomID)
}

// GameChannel is the pub/sub channel for an active game's events.
func GameChannel(gameID int) string {
	return fmt.Sprintf("game:%d:events", gameID)
}

// NotifyUser publishes an event to a player's channel. Best-effort.
func (n *Notifier) NotifyUser(ctx context.Context, playerID int, ev Event) {
	if n == nil || n.rdb == nil {
		return
	}
	n.publish(ctx, UserChannel(playerID), ev)
}

// NotifyRoom publishes an event to a lobby's channel. Best-effort.
func (n *Notifier) NotifyRoom(ctx context.Context, roomID int, ev Event) {
	if n == nil || n.rdb == nil {
		return
	}
	ev.RoomID = roomID
	n.publish(ctx, RoomChannel(roomID), ev)
}

// NotifyGame publishes an event to a game's channel. Best-effort.
func (n *Notifier) NotifyGame(ctx context.Context, gameID int, ev Event) {
	if n == nil || n.rdb == nil {
		return
	}
	ev.GameID = gameID
	n.publish(ctx, GameChannel(gameID), ev)
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[NOTIFY] Failed to marshal event type=%s: %v", ev.Type, err)
		return
	}
	if err := n.rdb.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[NOTIFY] Publish failed channel=%s type=%s: %v", channel, ev.Type, err)
	}
}
