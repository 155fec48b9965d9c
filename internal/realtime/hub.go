package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/skilledgame/backend/internal/matchmaking"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/settlement"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Hub tracks connected websocket clients and bridges Redis pub/sub events to
// them. Clients are merely subscribers: the authoritative state lives in the
// database and every push can be re-derived by a reconciliation fetch.
type Hub struct {
	clients map[int]*Client // playerID -> Client
	mu      sync.RWMutex

	rdb    *redis.Client
	engine *settlement.Engine
	queue  *matchmaking.Queue
}

func NewHub(rdb *redis.Client, engine *settlement.Engine, queue *matchmaking.Queue) *Hub {
	return &Hub{
		clients: make(map[int]*Client),
		rdb:     rdb,
		engine:  engine,
		queue:   queue,
	}
}

// Client is one connected websocket session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	playerID int
	send     chan []byte
	pubsub   *redis.PubSub

	mu          sync.Mutex
	watchedGame int
}

// inbound message shape from the browser.
type clientMessage struct {
	Type   string `json:"type"`
	RoomID int    `json:"room_id,omitempty"`
	GameID int    `json:"game_id,omitempty"`
}

// ServeWS upgrades the request and runs the session until disconnect.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed for player %d: %v", playerID, err)
		return
	}

	ctx := context.Background()
	client := &Client{
		hub:      h,
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, 64),
		pubsub:   h.rdb.Subscribe(ctx, notify.UserChannel(playerID)),
	}

	h.mu.Lock()
	if old, exists := h.clients[playerID]; exists {
		// Replaced connection (reconnect or second tab): drop the old one.
		close(old.send)
	}
	h.clients[playerID] = client
	h.mu.Unlock()

	h.queue.MarkOnline(ctx, playerID)
	log.Printf("[WS] Connected: player=%d", playerID)

	go client.relayPump(ctx)
	go client.writePump()
	client.readPump(ctx)
}

// readPump consumes messages from the browser until the connection dies.
func (c *Client) readPump(ctx context.Context) {
	defer c.cleanup(ctx)

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for player %d: %v", c.playerID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}

		switch msg.Type {
		case "watch_room":
			if msg.RoomID > 0 {
				c.pubsub.Subscribe(ctx, notify.RoomChannel(msg.RoomID))
			}
		case "watch_game":
			if msg.GameID > 0 {
				c.pubsub.Subscribe(ctx, notify.GameChannel(msg.GameID))
				c.mu.Lock()
				c.watchedGame = msg.GameID
				c.mu.Unlock()
				// Rejoining inside the grace period clears the forfeit timer.
				c.hub.engine.MarkConnected(ctx, msg.GameID, c.playerID)
			}
		case "ping":
			c.enqueue([]byte(`{"type":"pong"}`))
		default:
			c.sendError("unknown message type")
		}
	}
}

// relayPump forwards Redis pub/sub events to the websocket.
func (c *Client) relayPump(ctx context.Context) {
	ch := c.pubsub.Channel()
	for msg := range ch {
		c.enqueue([]byte(msg.Payload))
	}
}

// writePump writes queued messages and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for player %d: %v", c.playerID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Send buffer full for player %d, dropping message", c.playerID)
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{"type": "error", "message": message})
	c.enqueue(data)
}

// detach removes c from the registry. Reports whether c was still the
// registered session; a replaced connection must not touch presence or
// disconnect state, because the successor session owns them now.
func (h *Hub) detach(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, exists := h.clients[c.playerID]; exists && current == c {
		delete(h.clients, c.playerID)
		return true
	}
	return false
}

// cleanup runs once per session: deregister, and if this was still the live
// session mark presence and start the disconnect grace timer for a watched
// game. A session torn down by its own replacement skips the side effects so
// a reconnect cannot arm a forfeit deadline against a connected player.
func (c *Client) cleanup(ctx context.Context) {
	wasLive := c.hub.detach(c)

	c.pubsub.Close()
	c.conn.Close()

	if wasLive {
		c.hub.queue.MarkOffline(ctx, c.playerID)

		c.mu.Lock()
		watched := c.watchedGame
		c.mu.Unlock()
		if watched > 0 {
			c.hub.engine.MarkDisconnected(ctx, watched, c.playerID)
		}
	}

	log.Printf("[WS] Disconnected: player=%d", c.playerID)
}

// SendToPlayer pushes a message directly to a connected player, bypassing
// Redis. Used for connection-local acks.
func (h *Hub) SendToPlayer(playerID int, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Failed to marshal message: %v", err)
		return
	}

	h.mu.RLock()
	client, exists := h.clients[playerID]
	h.mu.RUnlock()
	if exists {
		client.enqueue(data)
	}
}

// ConnectedCount returns the number of live sessions.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
