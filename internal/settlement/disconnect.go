package settlement

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/models"
)

// Disconnect handling: when a participant's connection drops we record a
// forfeit deadline in a Redis sorted set; if they reconnect before the
// deadline the entry is removed, otherwise the sweep settles the game with
// the remaining player as winner and reason disconnect_forfeit. The grace
// period is configuration, not a constant.

const disconnectDeadlines = "disconnect:deadlines"

func disconnectMember(gameID, playerID int) string {
	return fmt.Sprintf("%d:%d", gameID, playerID)
}

// MarkDisconnected records a forfeit deadline for a player of an active game.
func (e *Engine) MarkDisconnected(ctx context.Context, gameID, playerID int) {
	if e.rdb == nil {
		return
	}
	deadline := time.Now().Add(time.Duration(e.cfg.DisconnectGraceSeconds) * time.Second)
	err := e.rdb.ZAdd(ctx, disconnectDeadlines, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: disconnectMember(gameID, playerID),
	}).Err()
	if err != nil {
		log.Printf("[DISCONNECT] Failed to record deadline game=%d player=%d: %v", gameID, playerID, err)
		return
	}
	log.Printf("[DISCONNECT] Player %d left game %d; forfeit at %s", playerID, gameID, deadline.Format(time.RFC3339))
}

// MarkConnected clears a pending forfeit deadline (reconnect inside grace).
func (e *Engine) MarkConnected(ctx context.Context, gameID, playerID int) {
	if e.rdb == nil {
		return
	}
	removed, err := e.rdb.ZRem(ctx, disconnectDeadlines, disconnectMember(gameID, playerID)).Result()
	if err != nil {
		log.Printf("[DISCONNECT] Failed to clear deadline game=%d player=%d: %v", gameID, playerID, err)
		return
	}
	if removed > 0 {
		log.Printf("[DISCONNECT] Player %d rejoined game %d inside grace", playerID, gameID)
	}
}

// StartDisconnectWorker sweeps expired deadlines and settles forfeits.
func (e *Engine) StartDisconnectWorker(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Printf("[DISCONNECT] Worker started (grace=%ds)", e.cfg.DisconnectGraceSeconds)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[DISCONNECT] Worker stopped")
			return
		case <-ticker.C:
			e.sweepDisconnects(ctx)
		}
	}
}

func (e *Engine) sweepDisconnects(ctx context.Context) {
	if e.rdb == nil {
		return
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	members, err := e.rdb.ZRangeByScore(ctx, disconnectDeadlines, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		log.Printf("[DISCONNECT] Sweep query failed: %v", err)
		return
	}

	for _, member := range members {
		gameID, playerID, ok := parseMember(member)
		if !ok {
			e.rdb.ZRem(ctx, disconnectDeadlines, member)
			continue
		}
		// The deadline stays in the set until the forfeit is known to be
		// handled; a transient settle failure is retried on the next sweep
		// instead of leaving the game active with both stakes locked.
		if e.forfeitIfStillActive(ctx, gameID, playerID) {
			e.rdb.ZRem(ctx, disconnectDeadlines, member)
		}
	}
}

// forfeitIfStillActive settles the game for an expired deadline. Reports
// whether the deadline has been fully handled and can be dropped.
func (e *Engine) forfeitIfStillActive(ctx context.Context, gameID, playerID int) bool {
	game, err := e.GetGame(ctx, gameID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return true
		}
		log.Printf("[DISCONNECT] Cannot load game %d: %v", gameID, err)
		return false
	}

	otherGone := false
	other, isParticipant := game.Opponent(playerID)
	if isParticipant {
		score, err := e.rdb.ZScore(ctx, disconnectDeadlines, disconnectMember(gameID, other)).Result()
		otherGone = err == nil && score <= float64(time.Now().Unix())
	}

	winnerID, reason, act := forfeitOutcome(game, playerID, otherGone)
	if !act {
		return true
	}

	if _, err := e.SettleGame(ctx, 0, true, gameID, winnerID, reason); err != nil {
		log.Printf("[DISCONNECT] Settle failed game=%d reason=%s: %v", gameID, reason, err)
		return false
	}
	if reason == models.ReasonAbandoned {
		e.rdb.ZRem(ctx, disconnectDeadlines, disconnectMember(gameID, other))
		log.Printf("[DISCONNECT] Abandoned: game=%d, both players past grace", gameID)
	} else {
		log.Printf("[DISCONNECT] Forfeit: game=%d loser=%d winner=%d", gameID, playerID, *winnerID)
	}
	return true
}

// forfeitOutcome decides how an expired disconnect deadline settles the game.
// Both players past grace means nobody is left to award the win to, so the
// game is abandoned with draw refunds; otherwise the remaining player wins by
// forfeit. act is false when the deadline needs no settlement.
func forfeitOutcome(game *models.Game, playerID int, otherGone bool) (winnerID *int, reason string, act bool) {
	if game.Status != models.GameStatusActive || !game.HasPlayer(playerID) {
		return nil, "", false
	}
	if otherGone {
		return nil, models.ReasonAbandoned, true
	}
	other, _ := game.Opponent(playerID)
	return &other, models.ReasonDisconnectForfeit, true
}

func parseMember(member string) (gameID, playerID int, ok bool) {
	parts := strings.SplitN(member, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	g, err1 := strconv.Atoi(parts[0])
	p, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return g, p, true
}
