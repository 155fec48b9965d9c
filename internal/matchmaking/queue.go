package matchmaking

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/models"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/settlement"
)

// Queue is the public matchmaking surface. Entries live in the
// matchmaking_queue table; the unique constraint on player_id closes the
// double-enqueue race without a pre-check.
type Queue struct {
	db       *sqlx.DB
	rdb      *redis.Client
	cfg      *config.Config
	notifier *notify.Notifier
	engine   *settlement.Engine
}

func NewQueue(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, notifier *notify.Notifier, engine *settlement.Engine) *Queue {
	return &Queue{db: db, rdb: rdb, cfg: cfg, notifier: notifier, engine: engine}
}

// Enqueue inserts a queue entry for the caller at the given wager tier.
func (q *Queue) Enqueue(ctx context.Context, playerID int, wager int64, displayName string) (*models.QueueEntry, error) {
	if wager < q.cfg.MinWager || wager > q.cfg.MaxWager {
		return nil, apperr.ErrInvalidWager
	}

	var player models.Player
	err := q.db.GetContext(ctx, &player, `SELECT id, display_name, skilled_coins, is_privileged FROM players WHERE id=$1`, playerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("player_not_found", "no such player")
	}
	if err != nil {
		return nil, apperr.Transient("failed to load player", err)
	}
	if !player.IsPrivileged && player.SkilledCoins < wager {
		return nil, apperr.InsufficientBalance("balance does not cover the wager")
	}
	if displayName == "" {
		displayName = player.DisplayName
	}

	var activeGames int
	if err := q.db.GetContext(ctx, &activeGames, `
		SELECT COUNT(*) FROM games
		WHERE status IN ('waiting','active') AND (white_player_id=$1 OR black_player_id=$1)
	`, playerID); err != nil {
		return nil, apperr.Transient("failed to check active games", err)
	}
	if activeGames > 0 {
		return nil, apperr.ErrAlreadyInActiveGame
	}

	var entry models.QueueEntry
	err = q.db.QueryRowxContext(ctx, `
		INSERT INTO matchmaking_queue (player_id, display_name, wager, enqueued_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, player_id, display_name, wager, enqueued_at
	`, playerID, displayName, wager).StructScan(&entry)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperr.ErrAlreadyQueued
		}
		return nil, apperr.Transient("failed to enqueue", err)
	}

	log.Printf("[QUEUE] Enqueued: player=%d wager=%d entry=%d", playerID, wager, entry.ID)
	return &entry, nil
}

// Dequeue removes the caller's entry. Calling with no entry outstanding is a
// no-op; losing the race to the matchmaker surfaces AlreadyMatched so the
// client can navigate to the game instead of showing a cancel confirmation.
func (q *Queue) Dequeue(ctx context.Context, playerID int) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE player_id=$1`, playerID)
	if err != nil {
		return apperr.Transient("failed to dequeue", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("[QUEUE] Dequeued: player=%d", playerID)
		return nil
	}

	var pending int
	if err := q.db.GetContext(ctx, &pending, `
		SELECT COUNT(*) FROM games
		WHERE status IN ('waiting','active') AND (white_player_id=$1 OR black_player_id=$1)
	`, playerID); err == nil && pending > 0 {
		return apperr.ErrAlreadyMatched
	}
	return nil
}

// Estimate is a read-only projection of queue state. Advisory only: it never
// gates any mutating operation.
type Estimate struct {
	OnlinePlayers int   `json:"online_players"`
	InGamePlayers int   `json:"in_game_players"`
	QueuedAtTier  int   `json:"queued_at_tier"`
	Position      int   `json:"position"`
	EstWaitSecs   int64 `json:"estimated_wait_seconds"`
}

// GetEstimate computes the caller's queue outlook at a wager tier.
func (q *Queue) GetEstimate(ctx context.Context, playerID int, wager int64) (*Estimate, error) {
	est := &Estimate{}

	if q.rdb != nil {
		if n, err := q.rdb.SCard(ctx, "presence:online").Result(); err == nil {
			est.OnlinePlayers = int(n)
		}
	}

	if err := q.db.GetContext(ctx, &est.InGamePlayers, `
		SELECT COUNT(*) * 2 FROM games WHERE status='active'`); err != nil {
		return nil, apperr.Transient("failed to count active games", err)
	}
	if err := q.db.GetContext(ctx, &est.QueuedAtTier, `
		SELECT COUNT(*) FROM matchmaking_queue WHERE wager=$1`, wager); err != nil {
		return nil, apperr.Transient("failed to count queue", err)
	}

	// Position stays 0 when the caller has no entry outstanding.
	var position int
	err := q.db.GetContext(ctx, &position, `
		SELECT (SELECT COUNT(*) + 1 FROM matchmaking_queue q2
		        WHERE q2.wager = q1.wager AND q2.enqueued_at < q1.enqueued_at)
		FROM matchmaking_queue q1 WHERE q1.player_id = $1
	`, playerID)
	if err == nil {
		est.Position = position
	} else if err != sql.ErrNoRows {
		return nil, apperr.Transient("failed to compute queue position", err)
	}

	est.EstWaitSecs = EstimateWaitSeconds(est.Position, est.QueuedAtTier, q.cfg.MatchmakerPollSeconds)
	return est, nil
}

// EstimateWaitSeconds is the wait heuristic: each pairing pass consumes two
// entries ahead of you, and passes run every poll interval. Zero position
// (not queued) estimates one full poll.
func EstimateWaitSeconds(position, queuedAtTier, pollSeconds int) int64 {
	if pollSeconds <= 0 {
		pollSeconds = 3
	}
	if position <= 0 {
		return int64(pollSeconds)
	}
	passes := (position + 1) / 2
	if passes < 1 {
		passes = 1
	}
	return int64(passes) * int64(pollSeconds)
}

// MarkOnline records presence used by the estimate projection.
func (q *Queue) MarkOnline(ctx context.Context, playerID int) {
	if q.rdb == nil {
		return
	}
	q.rdb.SAdd(ctx, "presence:online", playerID)
	q.rdb.Expire(ctx, "presence:online", 5*time.Minute)
}

// MarkOffline clears presence.
func (q *Queue) MarkOffline(ctx context.Context, playerID int) {
	if q.rdb == nil {
		return
	}
	q.rdb.SRem(ctx, "presence:online", playerID)
}
