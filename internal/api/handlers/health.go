package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status along with the state of the
// optional backing stores.
func HealthCheck(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "orbitsim-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"database": dbStatus(ctx, db),
			"redis":    redisStatus(ctx, rdb),
		})
	}
}

func dbStatus(ctx context.Context, db *sqlx.DB) string {
	if db == nil {
		return "disabled"
	}
	if err := db.PingContext(ctx); err != nil {
		return "down"
	}
	return "ok"
}

func redisStatus(ctx context.Context, rdb *redis.Client) string {
	if rdb == nil {
		return "disabled"
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return "down"
	}
	return "ok"
}
