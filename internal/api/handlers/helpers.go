package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skilledgame/backend/internal/apperr"
)

// respondError maps the error taxonomy onto HTTP responses. Typed errors
// carry their own status and a stable code; anything else is an internal
// error that gets logged but not leaked.
func respondError(c *gin.Context, err error) {
	if e := apperr.As(err); e != nil {
		c.JSON(e.HTTPStatus(), gin.H{"error": e.Msg, "code": e.Code})
		return
	}
	log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// pathInt parses a numeric path parameter, writing a 400 on failure.
func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
