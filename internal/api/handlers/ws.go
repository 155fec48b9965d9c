package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/realtime"
)

// HandleWebSocket upgrades the connection and hands the session to the hub.
func HandleWebSocket(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request, auth.PlayerID(c))
	}
}
