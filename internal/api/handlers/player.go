package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/ledger"
	"github.com/skilledgame/backend/internal/models"
)

// GetProfile returns the caller's player row, including the authoritative
// balance that clients reconcile their local copy against.
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var player models.Player
		err := db.GetContext(c.Request.Context(), &player, `
			SELECT id, display_name, skilled_coins, is_privileged, total_games_played,
			       total_games_won, total_winnings, created_at, last_active
			FROM players WHERE id=$1`, auth.PlayerID(c))
		if err == sql.ErrNoRows {
			respondError(c, apperr.NotFound("player_not_found", "no such player"))
			return
		}
		if err != nil {
			respondError(c, apperr.Transient("failed to load player", err))
			return
		}

		// Settled game ids let the client mark those settlements applied so a
		// replayed push cannot double-count against the fresh balance.
		var settled []int64
		db.SelectContext(c.Request.Context(), &settled, `
			SELECT id FROM games
			WHERE status='finished' AND (white_player_id=$1 OR black_player_id=$1)
			ORDER BY settled_at DESC LIMIT 50`, player.ID)

		c.JSON(http.StatusOK, gin.H{"player": player, "settled_game_ids": settled})
	}
}

// Deposit credits the caller's balance.
func Deposit(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Amount int64 `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount required"})
			return
		}

		balance, err := ledger.Deposit(db, auth.PlayerID(c), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"skilled_coins": balance})
	}
}

// Withdraw debits the caller's balance; overdrafts are rejected by the
// conditional update in the ledger.
func Withdraw(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Amount int64 `json:"amount" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount required"})
			return
		}

		balance, err := ledger.Withdraw(db, auth.PlayerID(c), req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"skilled_coins": balance})
	}
}

// Register creates a player row and returns a token. Kept minimal: identity
// is otherwise the auth provider's job.
func Register(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DisplayName string `json:"display_name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display_name required"})
			return
		}
		name := strings.TrimSpace(req.DisplayName)
		if name == "" || len(name) > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid display_name"})
			return
		}

		var player models.Player
		err := db.QueryRowxContext(c.Request.Context(), `
			INSERT INTO players (display_name, skilled_coins, created_at)
			VALUES ($1, 0, NOW())
			RETURNING id, display_name, skilled_coins, is_privileged, total_games_played,
			          total_games_won, total_winnings, created_at, last_active
		`, name).StructScan(&player)
		if err != nil {
			respondError(c, apperr.Transient("failed to create player", err))
			return
		}

		// Token minting here is a development convenience; in production the
		// auth provider issues tokens and this flag is off.
		if !cfg.DevTokenMinting {
			c.JSON(http.StatusCreated, gin.H{"player": player})
			return
		}
		token, err := auth.MintToken(cfg, player.ID, false)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"player": player, "token": token})
	}
}

// SupportLogin exchanges a support access code for a privileged token. Codes
// are bcrypt-hashed at seed time.
func SupportLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlayerID int    `json:"player_id" binding:"required"`
			Code     string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id and code required"})
			return
		}

		var player models.Player
		err := db.GetContext(c.Request.Context(), &player, `
			SELECT id, display_name, skilled_coins, is_privileged, support_code_hash
			FROM players WHERE id=$1 AND is_privileged`, req.PlayerID)
		if err != nil || !player.SupportCodeHash.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(player.SupportCodeHash.String), []byte(req.Code)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := auth.MintToken(cfg, player.ID, true)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
