package handlers

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/models"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/settlement"
)

// GetGame returns a game row to a participant (or a privileged caller).
func GetGame(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		game, err := engine.GetGame(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !auth.Privileged(c) && !game.HasPlayer(auth.PlayerID(c)) {
			respondError(c, apperr.ErrNotParticipant)
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": game})
	}
}

// LockWager reserves both stakes and activates the game. Safe to retry:
// a second call for the same game is a no-op. Only a participant (or a
// privileged caller) can trigger the debits.
func LockWager(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		game, err := engine.GetGame(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !auth.Privileged(c) && !game.HasPlayer(auth.PlayerID(c)) {
			respondError(c, apperr.ErrNotParticipant)
			return
		}

		locked, err := engine.LockWager(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": locked})
	}
}

// SettleGame records the outcome and pays out exactly once. A duplicate call
// returns the already-recorded result with already_done set.
func SettleGame(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		var req struct {
			WinnerID *int   `json:"winner_id"`
			Reason   string `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reason required"})
			return
		}

		result, err := engine.SettleGame(c.Request.Context(), auth.PlayerID(c), auth.Privileged(c), gameID, req.WinnerID, strings.ToLower(req.Reason))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// PlayMove appends a move to an active game and relays it to the room. The
// server records and broadcasts; chess legality is the clients' concern.
func PlayMove(db *sqlx.DB, engine *settlement.Engine, notifier *notify.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		var req struct {
			SAN string `json:"san" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || len(req.SAN) > 16 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "san required"})
			return
		}

		playerID := auth.PlayerID(c)
		game, err := engine.GetGame(c.Request.Context(), gameID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !game.HasPlayer(playerID) {
			respondError(c, apperr.ErrNotParticipant)
			return
		}
		if game.Status != models.GameStatusActive {
			respondError(c, apperr.Conflict("not_active", "moves can only be played in an active game"))
			return
		}

		move, err := recordMove(c.Request.Context(), db, gameID, playerID, req.SAN)
		if err != nil {
			respondError(c, err)
			return
		}

		notifier.NotifyGame(c.Request.Context(), gameID, notify.Event{Type: "move_played", Payload: move})
		c.JSON(http.StatusCreated, gin.H{"move": move})
	}
}

// recordMove inserts the next-numbered move row.
func recordMove(ctx context.Context, db *sqlx.DB, gameID, playerID int, san string) (*models.GameMove, error) {
	var move models.GameMove
	err := db.QueryRowxContext(ctx, `
		INSERT INTO game_moves (game_id, player_id, move_number, san, played_at)
		VALUES ($1, $2, (SELECT COALESCE(MAX(move_number), 0) + 1 FROM game_moves WHERE game_id=$1), $3, NOW())
		RETURNING id, game_id, player_id, move_number, san, played_at
	`, gameID, playerID, san).StructScan(&move)
	if err != nil {
		log.Printf("[DB] Failed to record move for game %d: %v", gameID, err)
		return nil, apperr.Transient("failed to record move", err)
	}
	return &move, nil
}

// GetMoves returns a game's move history.
func GetMoves(db *sqlx.DB, engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		if _, err := engine.GetGame(c.Request.Context(), gameID); err != nil {
			respondError(c, err)
			return
		}

		moves := []models.GameMove{}
		err := db.SelectContext(c.Request.Context(), &moves, `
			SELECT id, game_id, player_id, move_number, san, played_at
			FROM game_moves WHERE game_id=$1 ORDER BY move_number
		`, gameID)
		if err != nil && err != sql.ErrNoRows {
			respondError(c, apperr.Transient("failed to load moves", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"moves": moves})
	}
}
