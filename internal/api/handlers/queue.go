package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/matchmaking"
)

// Enqueue puts the caller into the matchmaking queue at a wager tier.
func Enqueue(q *matchmaking.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Wager       int64  `json:"wager" binding:"required"`
			DisplayName string `json:"display_name,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wager required"})
			return
		}

		entry, err := q.Enqueue(c.Request.Context(), auth.PlayerID(c), req.Wager, req.DisplayName)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"entry_id":    entry.ID,
			"wager":       entry.Wager,
			"enqueued_at": entry.EnqueuedAt,
		})
	}
}

// Dequeue cancels the caller's queue entry. Losing the race to the
// matchmaker returns 409 already_matched so the client navigates to the game.
func Dequeue(q *matchmaking.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := q.Dequeue(c.Request.Context(), auth.PlayerID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dequeued": true})
	}
}

// QueueEstimate returns the advisory queue projection.
func QueueEstimate(q *matchmaking.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		wager, err := strconv.ParseInt(c.Query("wager"), 10, 64)
		if err != nil || wager <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wager query parameter required"})
			return
		}

		est, err := q.GetEstimate(c.Request.Context(), auth.PlayerID(c), wager)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, est)
	}
}
