package ledger

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/models"
)

// The ledger is the only code allowed to touch players.skilled_coins. Debits
// are conditional updates (balance must cover the amount) so the balance >= 0
// invariant is enforced by the database, not by a read-then-write pre-check.

// Debit removes amount coins from a player inside an existing tx and journals
// the movement. Returns InsufficientBalance when the conditional update
// matches no row but the player exists.
func Debit(tx *sqlx.Tx, playerID int, amount int64, gameID sql.NullInt64, entryType string) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if amount <= 0 {
		return apperr.Validation("invalid_amount", "debit amount must be positive")
	}

	var balanceAfter int64
	err := tx.QueryRowx(`
		UPDATE players
		SET skilled_coins = skilled_coins - $1, last_active = NOW()
		WHERE id = $2 AND skilled_coins >= $1
		RETURNING skilled_coins
	`, amount, playerID).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		// Row not matched: either unknown player or short balance.
		var exists bool
		if err2 := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM players WHERE id=$1)`, playerID); err2 != nil {
			return err2
		}
		if !exists {
			return apperr.NotFound("player_not_found", "no such player")
		}
		return apperr.InsufficientBalance(fmt.Sprintf("player %d cannot cover %d coins", playerID, amount))
	}
	if err != nil {
		return err
	}

	if err := journal(tx, nullInt(playerID), gameID, entryType, -amount, balanceAfter); err != nil {
		return err
	}

	log.Printf("[LEDGER] Debit: player=%d amount=%d type=%s balance_after=%d", playerID, amount, entryType, balanceAfter)
	return nil
}

// Credit adds amount coins to a player inside an existing tx and journals the
// movement.
func Credit(tx *sqlx.Tx, playerID int, amount int64, gameID sql.NullInt64, entryType string) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	if amount <= 0 {
		return apperr.Validation("invalid_amount", "credit amount must be positive")
	}

	var balanceAfter int64
	err := tx.QueryRowx(`
		UPDATE players
		SET skilled_coins = skilled_coins + $1
		WHERE id = $2
		RETURNING skilled_coins
	`, amount, playerID).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		return apperr.NotFound("player_not_found", "no such player")
	}
	if err != nil {
		return err
	}

	if err := journal(tx, nullInt(playerID), gameID, entryType, amount, balanceAfter); err != nil {
		return err
	}

	log.Printf("[LEDGER] Credit: player=%d amount=%d type=%s balance_after=%d", playerID, amount, entryType, balanceAfter)
	return nil
}

// HouseEntry journals a movement on the house side (player_id NULL). The
// house has no balance column; balance_after is recorded as 0.
func HouseEntry(tx *sqlx.Tx, amount int64, gameID sql.NullInt64, entryType string) error {
	if tx == nil {
		return fmt.Errorf("tx is nil")
	}
	return journal(tx, sql.NullInt64{}, gameID, entryType, amount, 0)
}

func journal(tx *sqlx.Tx, playerID, gameID sql.NullInt64, entryType string, amount, balanceAfter int64) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (player_id, game_id, entry_type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, playerID, gameID, entryType, amount, balanceAfter)
	return err
}

// Deposit credits a player outside any game context (top-up flow).
func Deposit(db *sqlx.DB, playerID int, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperr.Validation("invalid_amount", "deposit amount must be positive")
	}
	tx, err := db.Beginx()
	if err != nil {
		return 0, apperr.Transient("failed to begin deposit tx", err)
	}
	defer tx.Rollback()

	if err := Credit(tx, playerID, amount, sql.NullInt64{}, models.EntryDeposit); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Transient("failed to commit deposit", err)
	}
	return GetBalance(db, playerID)
}

// Withdraw debits a player outside any game context. The conditional update
// inside Debit rejects overdrafts.
func Withdraw(db *sqlx.DB, playerID int, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperr.Validation("invalid_amount", "withdrawal amount must be positive")
	}
	tx, err := db.Beginx()
	if err != nil {
		return 0, apperr.Transient("failed to begin withdrawal tx", err)
	}
	defer tx.Rollback()

	if err := Debit(tx, playerID, amount, sql.NullInt64{}, models.EntryWithdrawal); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Transient("failed to commit withdrawal", err)
	}
	return GetBalance(db, playerID)
}

// GetBalance reads the authoritative balance.
func GetBalance(db *sqlx.DB, playerID int) (int64, error) {
	var balance int64
	err := db.Get(&balance, `SELECT skilled_coins FROM players WHERE id=$1`, playerID)
	if err == sql.ErrNoRows {
		return 0, apperr.NotFound("player_not_found", "no such player")
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func nullInt(id int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
