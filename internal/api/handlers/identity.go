package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// currentUser returns the caller identity injected by the authentication
// middleware (context key first, X-User-ID header as the dev fallback).
// Writes a 401 and returns false when no identity is present.
func currentUser(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id, true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	return "", false
}
