package models

import (
	"database/sql"
	"time"
)

// Game status values. A game is created in StatusWaiting by the matchmaker or
// a started lobby, moves to StatusActive once the wager is locked, and ends in
// StatusFinished exactly once via settlement. Finished is terminal.
const (
	GameStatusWaiting  = "waiting"
	GameStatusActive   = "active"
	GameStatusFinished = "finished"
)

// Room status values.
const (
	RoomStatusOpen      = "open"
	RoomStatusMatched   = "matched"
	RoomStatusStarted   = "started"
	RoomStatusCancelled = "cancelled"
)

// Settlement reasons.
const (
	ReasonCheckmate         = "checkmate"
	ReasonResignation       = "resignation"
	ReasonTimeout           = "timeout"
	ReasonDisconnectForfeit = "disconnect_forfeit"
	ReasonDraw              = "draw"
	ReasonAbandoned         = "abandoned"
)

// Ledger entry types.
const (
	EntryDeposit    = "deposit"
	EntryWithdrawal = "withdrawal"
	EntryWagerLock  = "wager_lock"
	EntryPayout     = "payout"
	EntryDrawRefund = "draw_refund"
	EntryHouseFee   = "house_fee"
)

// Player represents a user in the system. SkilledCoins is the authoritative
// balance field and is only ever mutated through the ledger package.
type Player struct {
	ID               int            `db:"id" json:"id"`
	DisplayName      string         `db:"display_name" json:"display_name"`
	SkilledCoins     int64          `db:"skilled_coins" json:"skilled_coins"`
	IsPrivileged     bool           `db:"is_privileged" json:"is_privileged"`
	SupportCodeHash  sql.NullString `db:"support_code_hash" json:"-"`
	TotalGamesPlayed int            `db:"total_games_played" json:"total_games_played"`
	TotalGamesWon    int            `db:"total_games_won" json:"total_games_won"`
	TotalWinnings    int64          `db:"total_winnings" json:"total_winnings"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	LastActive       sql.NullTime   `db:"last_active" json:"last_active,omitempty"`
}

// Game represents a single match. Rows are never deleted; finished games are
// retained as history.
type Game struct {
	ID            int            `db:"id" json:"id"`
	WhitePlayerID int            `db:"white_player_id" json:"white_player_id"`
	BlackPlayerID int            `db:"black_player_id" json:"black_player_id"`
	Wager         int64          `db:"wager" json:"wager"`
	Status        string         `db:"status" json:"status"`
	WinnerID      sql.NullInt64  `db:"winner_id" json:"winner_id,omitempty"`
	EndReason     sql.NullString `db:"end_reason" json:"end_reason,omitempty"`
	SettlementID  sql.NullString `db:"settlement_id" json:"settlement_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	StartedAt     sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	SettledAt     sql.NullTime   `db:"settled_at" json:"settled_at,omitempty"`
}

// HasPlayer reports whether the player sits on either side of the game.
func (g *Game) HasPlayer(playerID int) bool {
	return playerID == g.WhitePlayerID || playerID == g.BlackPlayerID
}

// Opponent returns the other participant of the game.
func (g *Game) Opponent(playerID int) (int, bool) {
	switch playerID {
	case g.WhitePlayerID:
		return g.BlackPlayerID, true
	case g.BlackPlayerID:
		return g.WhitePlayerID, true
	}
	return 0, false
}

// Room is a pre-game private lobby keyed by a short shareable code.
type Room struct {
	ID           int           `db:"id" json:"id"`
	Code         string        `db:"code" json:"code"`
	CreatorID    int           `db:"creator_id" json:"creator_id"`
	JoinerID     sql.NullInt64 `db:"joiner_id" json:"joiner_id,omitempty"`
	Wager        int64         `db:"wager" json:"wager"`
	CreatorReady bool          `db:"creator_ready" json:"creator_ready"`
	JoinerReady  bool          `db:"joiner_ready" json:"joiner_ready"`
	GameID       sql.NullInt64 `db:"game_id" json:"game_id,omitempty"`
	Status       string        `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// QueueEntry is a player waiting for a match at a wager tier. The player_id
// column carries a unique constraint: one outstanding entry per player.
type QueueEntry struct {
	ID          int       `db:"id" json:"id"`
	PlayerID    int       `db:"player_id" json:"player_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Wager       int64     `db:"wager" json:"wager"`
	EnqueuedAt  time.Time `db:"enqueued_at" json:"enqueued_at"`
}

// WagerLock asserts that a game's pot has been reserved so it cannot be
// double-spent. game_id is unique: a retried lock is a no-op.
type WagerLock struct {
	ID          int          `db:"id" json:"id"`
	GameID      int          `db:"game_id" json:"game_id"`
	Amount      int64        `db:"amount" json:"amount"`
	WhiteExempt bool         `db:"white_exempt" json:"white_exempt"`
	BlackExempt bool         `db:"black_exempt" json:"black_exempt"`
	LockedAt    time.Time    `db:"locked_at" json:"locked_at"`
	ReleasedAt  sql.NullTime `db:"released_at" json:"released_at,omitempty"`
}

// LedgerEntry is a journal row for every balance movement. A NULL player_id
// means the house side of the movement.
type LedgerEntry struct {
	ID           int           `db:"id" json:"id"`
	PlayerID     sql.NullInt64 `db:"player_id" json:"player_id,omitempty"`
	GameID       sql.NullInt64 `db:"game_id" json:"game_id,omitempty"`
	EntryType    string        `db:"entry_type" json:"entry_type"`
	Amount       int64         `db:"amount" json:"amount"`
	BalanceAfter int64         `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// GameMove is a single recorded move. The server records and relays moves; it
// does not validate chess legality.
type GameMove struct {
	ID         int       `db:"id" json:"id"`
	GameID     int       `db:"game_id" json:"game_id"`
	PlayerID   int       `db:"player_id" json:"player_id"`
	MoveNumber int       `db:"move_number" json:"move_number"`
	SAN        string    `db:"san" json:"san"`
	PlayedAt   time.Time `db:"played_at" json:"played_at"`
}
