package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/ledger"
	"github.com/skilledgame/backend/internal/models"
	"github.com/skilledgame/backend/internal/notify"
)

// Engine is the single authoritative payout path. Games move
// waiting → active → finished; finished is terminal and every transition is
// a conditional update, so duplicate or racing calls settle exactly once.
type Engine struct {
	db       *sqlx.DB
	rdb      *redis.Client
	cfg      *config.Config
	notifier *notify.Notifier
}

func NewEngine(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, notifier *notify.Notifier) *Engine {
	return &Engine{db: db, rdb: rdb, cfg: cfg, notifier: notifier}
}

// Result is the recorded outcome of a settlement. A retried SettleGame call
// returns the result recorded by the first call.
type Result struct {
	Game         models.Game `json:"game"`
	WinnerPayout int64       `json:"winner_payout"`
	DrawRefund   int64       `json:"draw_refund"`
	AlreadyDone  bool        `json:"already_done"`
}

// validReasons for ending a game. Draw and abandoned settle without a winner.
var validReasons = map[string]bool{
	models.ReasonCheckmate:         true,
	models.ReasonResignation:       true,
	models.ReasonTimeout:           true,
	models.ReasonDisconnectForfeit: true,
	models.ReasonDraw:              true,
	models.ReasonAbandoned:         true,
}

// LockWager reserves both players' stakes for a waiting game and flips it to
// active. Idempotent by game id: the wager_locks unique constraint plus the
// conditional status flip make a retried call a no-op that returns the game
// as-is. Privileged players are exempt from the debit; the house covers
// their stake.
func (e *Engine) LockWager(ctx context.Context, gameID int) (*models.Game, error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Transient("failed to begin lock tx", err)
	}
	defer tx.Rollback()

	var game models.Game
	err = tx.GetContext(ctx, &game, `SELECT * FROM games WHERE id=$1 FOR UPDATE`, gameID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load game", err)
	}

	switch game.Status {
	case models.GameStatusActive:
		// Retried lock: the first call already debited. No-op.
		return &game, nil
	case models.GameStatusFinished:
		return nil, apperr.ErrAlreadySettled
	}

	var white, black models.Player
	if err := tx.GetContext(ctx, &white, `SELECT id, display_name, skilled_coins, is_privileged FROM players WHERE id=$1`, game.WhitePlayerID); err != nil {
		return nil, apperr.Transient("failed to load white player", err)
	}
	if err := tx.GetContext(ctx, &black, `SELECT id, display_name, skilled_coins, is_privileged FROM players WHERE id=$1`, game.BlackPlayerID); err != nil {
		return nil, apperr.Transient("failed to load black player", err)
	}

	gameRef := sql.NullInt64{Int64: int64(gameID), Valid: true}
	if !white.IsPrivileged {
		if err := ledger.Debit(tx, white.ID, game.Wager, gameRef, models.EntryWagerLock); err != nil {
			return nil, err
		}
	}
	if !black.IsPrivileged {
		if err := ledger.Debit(tx, black.ID, game.Wager, gameRef, models.EntryWagerLock); err != nil {
			return nil, err
		}
	}

	// Unique game_id is the idempotency key; with the row lock above held a
	// duplicate insert cannot happen, but the constraint remains the backstop.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wager_locks (game_id, amount, white_exempt, black_exempt, locked_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, gameID, game.Wager, white.IsPrivileged, black.IsPrivileged); err != nil {
		return nil, apperr.Transient("failed to insert wager lock", err)
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE games SET status='active', started_at=NOW()
		WHERE id=$1 AND status='waiting'
		RETURNING *`, gameID).StructScan(&game)
	if err != nil {
		return nil, apperr.Transient("failed to activate game", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Transient("failed to commit wager lock", err)
	}

	log.Printf("[SETTLE] Locked: game=%d wager=%d white_exempt=%v black_exempt=%v",
		gameID, game.Wager, white.IsPrivileged, black.IsPrivileged)
	return &game, nil
}

// SettleGame pays out a finished game exactly once. winnerID nil means a
// draw (or abandonment). The caller must be a participant or privileged.
// Concurrent and retried calls are safe: only the caller that wins the
// conditional status flip performs transfers; everyone else gets the
// recorded result back.
func (e *Engine) SettleGame(ctx context.Context, callerID int, callerPrivileged bool, gameID int, winnerID *int, reason string) (*Result, error) {
	if !validReasons[reason] {
		return nil, apperr.Validation("invalid_reason", fmt.Sprintf("unknown end reason %q", reason))
	}
	isDraw := reason == models.ReasonDraw || reason == models.ReasonAbandoned
	if isDraw != (winnerID == nil) {
		return nil, apperr.Validation("invalid_winner", "winner must be set exactly when the reason names one")
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Transient("failed to begin settle tx", err)
	}
	defer tx.Rollback()

	var game models.Game
	err = tx.GetContext(ctx, &game, `SELECT * FROM games WHERE id=$1 FOR UPDATE`, gameID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load game", err)
	}

	if !callerPrivileged && !game.HasPlayer(callerID) {
		return nil, apperr.ErrNotParticipant
	}

	if game.Status == models.GameStatusFinished {
		// Second caller observes finished and gets the first result back,
		// amounts included. A game expired before its lock completed has no
		// lock row and paid nothing.
		res := &Result{Game: game, AlreadyDone: true}
		var lock models.WagerLock
		err := tx.GetContext(ctx, &lock, `SELECT * FROM wager_locks WHERE game_id=$1`, gameID)
		if err == nil {
			res.WinnerPayout, res.DrawRefund = recordedAmounts(&game, lock.Amount, e.cfg.PlatformFeePercent)
		} else if err != sql.ErrNoRows {
			return nil, apperr.Transient("failed to load wager lock", err)
		}
		tx.Rollback()
		return res, nil
	}
	if game.Status != models.GameStatusActive {
		return nil, apperr.Conflict("not_active", "game wager has not been locked yet")
	}
	if winnerID != nil && !game.HasPlayer(*winnerID) {
		return nil, apperr.Validation("invalid_winner", "winner is not a participant of this game")
	}

	var lock models.WagerLock
	if err := tx.GetContext(ctx, &lock, `SELECT * FROM wager_locks WHERE game_id=$1`, gameID); err != nil {
		return nil, apperr.Transient("failed to load wager lock", err)
	}

	settlementID := uuid.NewString()
	var winnerRef sql.NullInt64
	if winnerID != nil {
		winnerRef = sql.NullInt64{Int64: int64(*winnerID), Valid: true}
	}

	// The flip is the settlement guard: only one caller can move the row out
	// of 'active'. Everything after it runs at most once per game.
	res, err := tx.ExecContext(ctx, `
		UPDATE games
		SET status='finished', winner_id=$1, end_reason=$2, settlement_id=$3, settled_at=NOW()
		WHERE id=$4 AND status='active'
	`, winnerRef, reason, settlementID, gameID)
	if err != nil {
		return nil, apperr.Transient("failed to finish game", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, apperr.Transient("settlement flip affected no rows", nil)
	}

	gameRef := sql.NullInt64{Int64: int64(gameID), Valid: true}
	staked := int64(0)
	if !lock.WhiteExempt {
		staked += lock.Amount
	}
	if !lock.BlackExempt {
		staked += lock.Amount
	}

	result := &Result{}
	paidOut := int64(0)
	if winnerID != nil {
		payout := WinnerPayout(lock.Amount, e.cfg.PlatformFeePercent)
		if err := ledger.Credit(tx, *winnerID, payout, gameRef, models.EntryPayout); err != nil {
			return nil, err
		}
		paidOut += payout
		result.WinnerPayout = payout

		if _, err := tx.ExecContext(ctx, `
			UPDATE players SET total_games_won = total_games_won + 1, total_winnings = total_winnings + $1
			WHERE id=$2`, payout, *winnerID); err != nil {
			return nil, apperr.Transient("failed to update winner stats", err)
		}
	} else {
		// Draw or abandonment: split the after-fee pot. Players whose stake
		// was exempt never paid in, so they get nothing back.
		refund := DrawRefund(lock.Amount, e.cfg.PlatformFeePercent)
		result.DrawRefund = refund
		if !lock.WhiteExempt {
			if err := ledger.Credit(tx, game.WhitePlayerID, refund, gameRef, models.EntryDrawRefund); err != nil {
				return nil, err
			}
			paidOut += refund
		}
		if !lock.BlackExempt {
			if err := ledger.Credit(tx, game.BlackPlayerID, refund, gameRef, models.EntryDrawRefund); err != nil {
				return nil, err
			}
			paidOut += refund
		}
	}

	if fee := HouseFee(staked, paidOut); fee != 0 {
		if err := ledger.HouseEntry(tx, fee, gameRef, models.EntryHouseFee); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE wager_locks SET released_at=NOW() WHERE game_id=$1 AND released_at IS NULL`, gameID); err != nil {
		return nil, apperr.Transient("failed to release wager lock", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET total_games_played = total_games_played + 1
		WHERE id IN ($1, $2)`, game.WhitePlayerID, game.BlackPlayerID); err != nil {
		return nil, apperr.Transient("failed to update player stats", err)
	}

	if err := tx.GetContext(ctx, &game, `SELECT * FROM games WHERE id=$1`, gameID); err != nil {
		return nil, apperr.Transient("failed to reload game", err)
	}
	if err := tx.Commit(); err != nil {
		// Nothing was half-applied: the game row is still active and a retry
		// settles it cleanly.
		return nil, apperr.Transient("failed to commit settlement", err)
	}
	result.Game = game

	log.Printf("[SETTLE] Settled: game=%d reason=%s winner=%v settlement_id=%s payout=%d refund=%d",
		gameID, reason, winnerRef, settlementID, result.WinnerPayout, result.DrawRefund)

	e.notifier.NotifyGame(ctx, gameID, notify.Event{Type: "game_settled", Payload: result})
	e.notifier.NotifyUser(ctx, game.WhitePlayerID, notify.Event{Type: "game_settled", GameID: gameID, Payload: result})
	e.notifier.NotifyUser(ctx, game.BlackPlayerID, notify.Event{Type: "game_settled", GameID: gameID, Payload: result})
	return result, nil
}

// GetGame loads a game row.
func (e *Engine) GetGame(ctx context.Context, gameID int) (*models.Game, error) {
	var game models.Game
	err := e.db.GetContext(ctx, &game, `SELECT * FROM games WHERE id=$1`, gameID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load game", err)
	}
	return &game, nil
}
