package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skilledgame/backend/internal/config"
)

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "skilled-backend"})
}

// ClientConfig serves the settings the web client needs before login: wager
// bounds for the stake picker, the fee for payout previews, and the reconnect
// parameters for its websocket retry loop.
func ClientConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"min_wager":                 cfg.MinWager,
			"max_wager":                 cfg.MaxWager,
			"platform_fee_percent":      cfg.PlatformFeePercent,
			"disconnect_grace_seconds":  cfg.DisconnectGraceSeconds,
			"reconnect_backoff_base_ms": cfg.ReconnectBackoffBaseMs,
		})
	}
}
