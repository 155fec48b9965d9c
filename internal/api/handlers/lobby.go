package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/lobby"
)

// CreateLobby opens a private room and returns its shareable code.
func CreateLobby(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Wager int64 `json:"wager" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wager required"})
			return
		}

		room, err := mgr.CreateLobby(c.Request.Context(), auth.PlayerID(c), req.Wager)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"room_id":    room.ID,
			"lobby_code": room.Code,
			"wager":      room.Wager,
			"status":     room.Status,
		})
	}
}

// JoinLobby claims an open room by code.
func JoinLobby(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
			return
		}

		room, err := mgr.JoinLobby(c.Request.Context(), auth.PlayerID(c), req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"room_id":  room.ID,
			"wager":    room.Wager,
			"opponent": room.CreatorID,
			"status":   room.Status,
		})
	}
}

// ToggleReady flips the caller's ready flag and returns both flags.
func ToggleReady(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		room, err := mgr.ToggleReady(c.Request.Context(), auth.PlayerID(c), roomID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"creator_ready": room.CreatorReady,
			"joiner_ready":  room.JoinerReady,
		})
	}
}

// StartGame transitions a both-ready room into a live game.
func StartGame(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		game, err := mgr.StartGame(c.Request.Context(), auth.PlayerID(c), roomID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"game": game})
	}
}

// CancelLobby removes the caller's un-joined lobby.
func CancelLobby(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		if err := mgr.CancelLobby(c.Request.Context(), auth.PlayerID(c), roomID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	}
}

// GetLobby returns the caller's view of a room.
func GetLobby(mgr *lobby.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := pathInt(c, "id")
		if !ok {
			return
		}

		room, err := mgr.GetRoom(c.Request.Context(), auth.PlayerID(c), roomID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room})
	}
}
