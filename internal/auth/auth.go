package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/skilledgame/backend/internal/config"
)

// The core never manages credentials: tokens are issued by the auth provider
// and carry the player id plus a privileged flag (admin/support bypass). This
// package only verifies and extracts.

const (
	ctxPlayerID   = "player_id"
	ctxPrivileged = "privileged"
)

// MintToken issues an HS256 token for a player. In production this lives in
// the auth provider; the server keeps it for development and support tooling.
func MintToken(cfg *config.Config, playerID int, privileged bool) (string, error) {
	exp := time.Now().Add(time.Duration(cfg.TokenTTLHours) * time.Hour)
	claims := jwt.MapClaims{
		"player_id":  playerID,
		"privileged": privileged,
		"exp":        exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// Middleware verifies the Bearer token and stores identity in the context.
func Middleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == "" || tokenStr == header {
			// Browsers cannot set headers on websocket upgrades; accept the
			// token as a query parameter there.
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			return
		}
		playerIDf, ok := claims["player_id"].(float64)
		if !ok || playerIDf <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid player claim"})
			return
		}

		c.Set(ctxPlayerID, int(playerIDf))
		privileged, _ := claims["privileged"].(bool)
		c.Set(ctxPrivileged, privileged)
		c.Next()
	}
}

// PlayerID returns the authenticated player id from the request context.
func PlayerID(c *gin.Context) int {
	id, _ := c.Get(ctxPlayerID)
	playerID, _ := id.(int)
	return playerID
}

// Privileged reports whether the caller carries the privileged claim.
func Privileged(c *gin.Context) bool {
	v, _ := c.Get(ctxPrivileged)
	privileged, _ := v.(bool)
	return privileged
}
