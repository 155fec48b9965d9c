package lobby

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/models"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/settlement"
)

// Manager owns the private-lobby lifecycle: open → matched → started. All
// state lives in the rooms table; concurrent joins and starts are resolved by
// conditional updates, never by in-memory locks.
type Manager struct {
	db       *sqlx.DB
	cfg      *config.Config
	notifier *notify.Notifier
	engine   *settlement.Engine
}

func NewManager(db *sqlx.DB, cfg *config.Config, notifier *notify.Notifier, engine *settlement.Engine) *Manager {
	return &Manager{db: db, cfg: cfg, notifier: notifier, engine: engine}
}

const roomColumns = `id, code, creator_id, joiner_id, wager, creator_ready, joiner_ready, game_id, status, created_at`

// CreateLobby opens a new private room for the caller. Privileged players
// bypass the balance check (support/testing accounts).
func (m *Manager) CreateLobby(ctx context.Context, playerID int, wager int64) (*models.Room, error) {
	if wager < m.cfg.MinWager || wager > m.cfg.MaxWager {
		return nil, apperr.ErrInvalidWager
	}

	var player models.Player
	err := m.db.GetContext(ctx, &player, `SELECT id, display_name, skilled_coins, is_privileged FROM players WHERE id=$1`, playerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("player_not_found", "no such player")
	}
	if err != nil {
		return nil, apperr.Transient("failed to load player", err)
	}
	if !player.IsPrivileged && player.SkilledCoins < wager {
		return nil, apperr.InsufficientBalance("balance does not cover the wager")
	}

	// One open lobby per player. The partial unique index on
	// rooms(creator_id) WHERE status='open' is the authority; this read just
	// produces the friendlier error for the common case.
	var openCount int
	if err := m.db.GetContext(ctx, &openCount, `SELECT COUNT(*) FROM rooms WHERE creator_id=$1 AND status='open'`, playerID); err != nil {
		return nil, apperr.Transient("failed to check open lobbies", err)
	}
	if openCount > 0 {
		return nil, apperr.ErrAlreadyInLobby
	}

	var activeGames int
	if err := m.db.GetContext(ctx, &activeGames, `
		SELECT COUNT(*) FROM games
		WHERE status IN ('waiting','active') AND (white_player_id=$1 OR black_player_id=$1)
	`, playerID); err != nil {
		return nil, apperr.Transient("failed to check active games", err)
	}
	if activeGames > 0 {
		return nil, apperr.ErrAlreadyInActiveGame
	}

	// Collision-check the code against currently-open rooms; the partial
	// unique index on rooms(code) WHERE status='open' closes the race.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, apperr.Transient("failed to generate room code", err)
		}

		var room models.Room
		err = m.db.QueryRowxContext(ctx, `
			INSERT INTO rooms (code, creator_id, wager, status, created_at)
			VALUES ($1, $2, $3, 'open', NOW())
			RETURNING `+roomColumns, code, playerID, wager).StructScan(&room)
		if err != nil {
			if constraint, ok := uniqueViolation(err); ok {
				if strings.Contains(constraint, "creator") {
					return nil, apperr.ErrAlreadyInLobby
				}
				// Code collision with another open room; try a fresh code.
				continue
			}
			return nil, apperr.Transient("failed to create room", err)
		}

		log.Printf("[LOBBY] Created: room=%d code=%s creator=%d wager=%d", room.ID, room.Code, playerID, wager)
		return &room, nil
	}

	return nil, apperr.Transient("could not find a free room code", nil)
}

// JoinLobby claims the open room with the given code for the caller. The
// claim is a single conditional update, so concurrent joins on the same code
// resolve with exactly one winner; the loser observes the room no longer open
// and gets LobbyFull.
func (m *Manager) JoinLobby(ctx context.Context, playerID int, code string) (*models.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return nil, apperr.Validation("malformed_code", "room codes are 6 characters")
	}

	var player models.Player
	err := m.db.GetContext(ctx, &player, `SELECT id, display_name, skilled_coins, is_privileged FROM players WHERE id=$1`, playerID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("player_not_found", "no such player")
	}
	if err != nil {
		return nil, apperr.Transient("failed to load player", err)
	}

	// A player with an unfinished game cannot take a seat in a second one.
	var activeGames int
	if err := m.db.GetContext(ctx, &activeGames, `
		SELECT COUNT(*) FROM games
		WHERE status IN ('waiting','active') AND (white_player_id=$1 OR black_player_id=$1)
	`, playerID); err != nil {
		return nil, apperr.Transient("failed to check active games", err)
	}
	if activeGames > 0 {
		return nil, apperr.ErrAlreadyInActiveGame
	}

	// Wager is fixed at creation; read it to run the balance pre-check. The
	// authoritative balance enforcement happens at wager lock.
	var room models.Room
	err = m.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE code=$1 ORDER BY created_at DESC LIMIT 1`, code)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrLobbyNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load room", err)
	}
	if room.CreatorID == playerID {
		return nil, apperr.ErrSelfJoin
	}
	if !player.IsPrivileged && player.SkilledCoins < room.Wager {
		return nil, apperr.InsufficientBalance("balance does not cover the wager")
	}

	err = m.db.QueryRowxContext(ctx, `
		UPDATE rooms
		SET joiner_id=$1, status='matched'
		WHERE code=$2 AND status='open' AND joiner_id IS NULL AND creator_id <> $1
		RETURNING `+roomColumns, playerID, code).StructScan(&room)
	if err == sql.ErrNoRows {
		// The room existed a moment ago, so somebody else won the claim.
		return nil, apperr.ErrLobbyFull
	}
	if err != nil {
		return nil, apperr.Transient("failed to join room", err)
	}

	log.Printf("[LOBBY] Joined: room=%d code=%s joiner=%d", room.ID, room.Code, playerID)
	m.notifier.NotifyRoom(ctx, room.ID, notify.Event{Type: "lobby_joined", Payload: map[string]interface{}{
		"joiner_id":           playerID,
		"joiner_display_name": player.DisplayName,
	}})
	m.notifier.NotifyUser(ctx, room.CreatorID, notify.Event{Type: "lobby_joined", RoomID: room.ID})
	return &room, nil
}

// ToggleReady flips the caller's own ready flag. Each call toggles, so the
// operation is its own inverse; it never touches the other side's flag.
func (m *Manager) ToggleReady(ctx context.Context, playerID, roomID int) (*models.Room, error) {
	var room models.Room
	err := m.db.QueryRowxContext(ctx, `
		UPDATE rooms
		SET creator_ready = CASE WHEN creator_id=$1 THEN NOT creator_ready ELSE creator_ready END,
		    joiner_ready  = CASE WHEN joiner_id=$1  THEN NOT joiner_ready  ELSE joiner_ready  END
		WHERE id=$2 AND status='matched' AND (creator_id=$1 OR joiner_id=$1)
		RETURNING `+roomColumns, playerID, roomID).StructScan(&room)
	if err == sql.ErrNoRows {
		var exists bool
		if err2 := m.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id=$1)`, roomID); err2 == nil && !exists {
			return nil, apperr.ErrLobbyNotFound
		}
		return nil, apperr.Conflict("not_joinable", "room is not in the matched state or caller is not a participant")
	}
	if err != nil {
		return nil, apperr.Transient("failed to toggle ready", err)
	}

	m.notifier.NotifyRoom(ctx, room.ID, notify.Event{Type: "ready_changed", Payload: map[string]interface{}{
		"creator_ready": room.CreatorReady,
		"joiner_ready":  room.JoinerReady,
	}})
	return &room, nil
}

// StartGame transitions a matched room with both players ready into started,
// creating the game row and locking the wager. The status flip to 'started'
// is the single authoritative start signal both clients race-listen for; the
// both-ready gate is checked under a row lock so neither client can force a
// false start.
func (m *Manager) StartGame(ctx context.Context, playerID, roomID int) (*models.Game, error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Transient("failed to begin start tx", err)
	}
	defer tx.Rollback()

	var room models.Room
	err = tx.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1 FOR UPDATE`, roomID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrLobbyNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load room", err)
	}

	if room.CreatorID != playerID && (!room.JoinerID.Valid || int(room.JoinerID.Int64) != playerID) {
		return nil, apperr.ErrNotParticipant
	}
	if room.Status == models.RoomStatusStarted && room.GameID.Valid {
		// Lost the race to the other client; return the already-created game.
		var game models.Game
		if err := tx.GetContext(ctx, &game, `SELECT * FROM games WHERE id=$1`, room.GameID.Int64); err != nil {
			return nil, apperr.Transient("failed to load started game", err)
		}
		return &game, nil
	}
	if room.Status != models.RoomStatusMatched || !room.JoinerID.Valid {
		return nil, apperr.Conflict("not_startable", "room has no joiner or is not matched")
	}
	if !room.CreatorReady || !room.JoinerReady {
		return nil, apperr.ErrNotReady
	}

	// Deterministic side assignment: the creator plays white.
	var game models.Game
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO games (white_player_id, black_player_id, wager, status, created_at)
		VALUES ($1, $2, $3, 'waiting', NOW())
		RETURNING *`, room.CreatorID, room.JoinerID.Int64, room.Wager).StructScan(&game)
	if err != nil {
		return nil, apperr.Transient("failed to create game", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE rooms SET status='started', game_id=$1 WHERE id=$2`, game.ID, roomID); err != nil {
		return nil, apperr.Transient("failed to mark room started", err)
	}

	// Entering a game supersedes any queue entry either player still holds;
	// clearing them here keeps the matchmaker from pairing a busy player.
	if _, err := tx.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE player_id IN ($1, $2)`,
		room.CreatorID, room.JoinerID.Int64); err != nil {
		return nil, apperr.Transient("failed to clear queue entries", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Transient("failed to commit start", err)
	}

	log.Printf("[LOBBY] Started: room=%d game=%d white=%d black=%d wager=%d",
		roomID, game.ID, game.WhitePlayerID, game.BlackPlayerID, game.Wager)

	// Lock the wager (waiting → active). On failure the game stays waiting
	// and the expiry sweep cancels and refunds it; a half-started game is
	// retryable, never half-paid.
	locked, err := m.engine.LockWager(ctx, game.ID)
	if err != nil {
		log.Printf("[LOBBY] Wager lock failed for game %d: %v", game.ID, err)
		return nil, err
	}

	m.notifier.NotifyRoom(ctx, roomID, notify.Event{Type: "game_started", GameID: locked.ID})
	return locked, nil
}

// CancelLobby removes the caller's un-joined lobby. Losing the race to a
// joiner surfaces AlreadyMatched rather than silently erroring.
func (m *Manager) CancelLobby(ctx context.Context, playerID, roomID int) error {
	res, err := m.db.ExecContext(ctx, `
		UPDATE rooms SET status='cancelled'
		WHERE id=$1 AND creator_id=$2 AND status='open'
	`, roomID, playerID)
	if err != nil {
		return apperr.Transient("failed to cancel room", err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		log.Printf("[LOBBY] Cancelled: room=%d creator=%d", roomID, playerID)
		return nil
	}

	var room models.Room
	err = m.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1 AND creator_id=$2`, roomID, playerID)
	if err == sql.ErrNoRows {
		return apperr.ErrLobbyNotFound
	}
	if err != nil {
		return apperr.Transient("failed to load room", err)
	}
	if room.Status == models.RoomStatusMatched || room.Status == models.RoomStatusStarted {
		return apperr.ErrAlreadyMatched
	}
	// Already cancelled: cancellation is idempotent.
	return nil
}

// GetRoom loads a room the caller participates in.
func (m *Manager) GetRoom(ctx context.Context, playerID, roomID int) (*models.Room, error) {
	var room models.Room
	err := m.db.GetContext(ctx, &room, `
		SELECT `+roomColumns+` FROM rooms WHERE id=$1 AND (creator_id=$2 OR joiner_id=$2)
	`, roomID, playerID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrLobbyNotFound
	}
	if err != nil {
		return nil, apperr.Transient("failed to load room", err)
	}
	return &room, nil
}

// uniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505) and returns the violated constraint name.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}
