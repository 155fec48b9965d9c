package matchmaking

import (
	"context"
	"log"
	"time"

	"github.com/skilledgame/backend/internal/models"
	"github.com/skilledgame/backend/internal/notify"
)

// StartWorker runs the pairing loop and the stale-entry sweep. Pairing is
// FIFO per wager tier and transactional: either both entries are removed and
// exactly one game is created, or nothing happens.
func (q *Queue) StartWorker(ctx context.Context) {
	interval := time.Duration(q.cfg.MatchmakerPollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(time.Minute)
	defer staleTicker.Stop()

	log.Printf("[MATCHMAKER] Worker started (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Worker stopped")
			return
		case <-ticker.C:
			q.processPairing(ctx)
		case <-staleTicker.C:
			q.sweepStaleEntries(ctx)
		}
	}
}

func (q *Queue) processPairing(ctx context.Context) {
	var tiers []int64
	err := q.db.SelectContext(ctx, &tiers, `
		SELECT DISTINCT wager FROM matchmaking_queue ORDER BY wager
	`)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to list wager tiers: %v", err)
		return
	}

	for _, wager := range tiers {
		for q.tryMatchPair(ctx, wager) {
		}
	}
}

// tryMatchPair claims the two oldest entries at a tier and binds them into a
// game. FOR UPDATE SKIP LOCKED lets concurrent workers claim disjoint pairs
// without blocking each other.
func (q *Queue) tryMatchPair(ctx context.Context, wager int64) bool {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to begin transaction: %v", err)
		return false
	}
	defer tx.Rollback()

	// Entries whose player has since entered a game (a lobby start that raced
	// the queue cleanup) are never eligible for pairing.
	var entries []models.QueueEntry
	err = tx.SelectContext(ctx, &entries, `
		SELECT id, player_id, display_name, wager, enqueued_at
		FROM matchmaking_queue mq
		WHERE mq.wager = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM games g
		      WHERE g.status IN ('waiting','active')
		        AND (g.white_player_id = mq.player_id OR g.black_player_id = mq.player_id)
		  )
		ORDER BY mq.enqueued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 2
	`, wager)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to query entries at wager %d: %v", wager, err)
		return false
	}
	if len(entries) < 2 {
		return false
	}

	first, second := entries[0], entries[1]

	if _, err := tx.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE id IN ($1, $2)`, first.ID, second.ID); err != nil {
		log.Printf("[MATCHMAKER] Failed to remove matched entries: %v", err)
		return false
	}

	// Deterministic side assignment: the older entry plays white.
	var game models.Game
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO games (white_player_id, black_player_id, wager, status, created_at)
		VALUES ($1, $2, $3, 'waiting', NOW())
		RETURNING *`, first.PlayerID, second.PlayerID, wager).StructScan(&game)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to create game: %v", err)
		return false
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[MATCHMAKER] Failed to commit pairing: %v", err)
		return false
	}

	log.Printf("[MATCHMAKER] Matched: game=%d white=%d black=%d wager=%d",
		game.ID, first.PlayerID, second.PlayerID, wager)

	// Lock stakes (waiting → active). Failure leaves the game waiting; the
	// expiry sweep closes it and nobody has paid anything.
	if _, err := q.engine.LockWager(ctx, game.ID); err != nil {
		log.Printf("[MATCHMAKER] Wager lock failed for game %d: %v", game.ID, err)
	}

	q.notifier.NotifyUser(ctx, first.PlayerID, notify.Event{Type: "match_found", GameID: game.ID, Payload: map[string]interface{}{
		"side": "white", "opponent": second.DisplayName, "wager": wager,
	}})
	q.notifier.NotifyUser(ctx, second.PlayerID, notify.Event{Type: "match_found", GameID: game.ID, Payload: map[string]interface{}{
		"side": "black", "opponent": first.DisplayName, "wager": wager,
	}})
	return true
}

// sweepStaleEntries purges heartbeat-less entries so a player who closed
// their browser does not block future pairing.
func (q *Queue) sweepStaleEntries(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(q.cfg.QueueStaleSeconds) * time.Second)

	rows, err := q.db.QueryxContext(ctx, `
		DELETE FROM matchmaking_queue WHERE enqueued_at < $1 RETURNING player_id
	`, cutoff)
	if err != nil {
		log.Printf("[MATCHMAKER] Stale sweep failed: %v", err)
		return
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var playerID int
		if err := rows.Scan(&playerID); err != nil {
			continue
		}
		count++
		q.notifier.NotifyUser(ctx, playerID, notify.Event{Type: "queue_expired"})
	}
	if count > 0 {
		log.Printf("[MATCHMAKER] Purged %d stale queue entries", count)
	}
}
