package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/auth"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/operator"
)

// IssueToken exchanges operator credentials for a session token
func IssueToken(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "operator accounts unavailable"})
			return
		}

		var req struct {
			Name string `json:"name" binding:"required"`
			Key  string `json:"key" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		name := strings.TrimSpace(req.Name)

		op, err := operator.Authenticate(db, name, req.Key)
		if err != nil {
			if !errors.Is(err, operator.ErrNotFound) && !errors.Is(err, operator.ErrInvalidKey) {
				log.Printf("[AUTH] Token request for %s failed: %v", name, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.Set(operatorKey, name)
			audit(db, c, "token", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		token, expiresAt, err := auth.IssueToken(cfg, op.Name, op.Roles)
		if err != nil {
			log.Printf("[AUTH] Failed to issue token for %s: %v", op.Name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(operatorKey, op.Name)
		audit(db, c, "token", nil, true)
		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_at":   expiresAt.Format(time.RFC3339),
		})
	}
}

// AuthMiddleware validates the bearer token and sets the operator name in
// context. With auth disabled every request runs as "anonymous".
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.RequireAuth {
			c.Set(operatorKey, "anonymous")
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		name, err := auth.ParseToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(operatorKey, name)
		c.Next()
	}
}
