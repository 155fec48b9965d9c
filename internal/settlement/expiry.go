package settlement

import (
	"context"
	"log"
	"time"

	"github.com/lib/pq"
)

// StartExpiryWorker finishes games stuck in 'waiting' (the wager lock never
// completed, so no money moved). They are closed as abandoned without
// transfers; the conditional update keeps the sweep idempotent under
// overlapping runs.
func (e *Engine) StartExpiryWorker(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.expireWaitingGames(ctx)
		}
	}
}

func (e *Engine) expireWaitingGames(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(e.cfg.WaitingGameExpiryMins) * time.Minute)

	rows, err := e.db.QueryxContext(ctx, `
		UPDATE games
		SET status='finished', end_reason='abandoned', settlement_id=gen_random_uuid()::text, settled_at=NOW()
		WHERE status='waiting' AND created_at < $1
		RETURNING id
	`, cutoff)
	if err != nil {
		log.Printf("[EXPIRY] Failed to expire waiting games: %v", err)
		return
	}
	defer rows.Close()

	var expired []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			continue
		}
		expired = append(expired, id)
	}
	if len(expired) == 0 {
		return
	}

	// Close out any rooms still pointing at the expired games.
	if _, err := e.db.ExecContext(ctx, `
		UPDATE rooms SET status='cancelled' WHERE game_id = ANY($1) AND status='started'
	`, pq.Array(expired)); err != nil {
		log.Printf("[EXPIRY] Failed to cancel rooms for expired games: %v", err)
	}

	log.Printf("[EXPIRY] Closed %d waiting games as abandoned", len(expired))
}
