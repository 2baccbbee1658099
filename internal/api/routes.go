package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/api/handlers"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/middleware"
	"github.com/playmatatu/orbitsim/internal/scenario"
	"github.com/playmatatu/orbitsim/internal/sim"
	"github.com/playmatatu/orbitsim/internal/ws"
	"github.com/redis/go-redis/v9"
)

// SetupRoutes configures all API routes. db, rdb and repo may be nil; the
// routes that need them answer 503.
func SetupRoutes(router *gin.Engine, mgr *sim.Manager, hub *ws.Hub, repo *scenario.Repository, db *sqlx.DB, rdb *redis.Client, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(db, rdb))
		v1.GET("/config", handlers.GetConfig(cfg))
		v1.POST("/auth/token", handlers.IssueToken(db, cfg))

		// Read-only
		v1.GET("/sims", handlers.ListSimulations(mgr))
		v1.GET("/sims/:id", handlers.GetSimulation(mgr))
		v1.GET("/sims/:id/telemetry", handlers.GetTelemetry(mgr))
		v1.GET("/sims/:id/merges", handlers.GetMergeHistory(mgr))
		v1.GET("/sims/:id/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleSimWebSocket(mgr, hub, cfg))
		v1.GET("/scenarios", handlers.ListScenarios(repo))
		v1.GET("/scenarios/:id", handlers.GetScenario(repo))

		// Mutations
		ops := v1.Group("")
		ops.Use(handlers.AuthMiddleware(cfg))
		{
			ops.POST("/sims", handlers.CreateSimulation(mgr, repo, db))
			ops.DELETE("/sims/:id", handlers.DeleteSimulation(mgr, db))
			ops.POST("/sims/:id/bodies", handlers.AddBody(mgr, hub))
			ops.PUT("/sims/:id/bodies/:body/velocity", handlers.SetBodyVelocity(mgr))
			ops.POST("/sims/:id/bodies/:body/grow", handlers.GrowBody(mgr))
			ops.POST("/sims/:id/step", handlers.StepSimulation(mgr))
			ops.POST("/sims/:id/pause", handlers.PauseSimulation(mgr, hub))
			ops.POST("/sims/:id/resume", handlers.ResumeSimulation(mgr, hub))
			ops.PUT("/sims/:id/timestep", handlers.SetTimestep(mgr, hub))
			ops.POST("/sims/:id/hierarchy", handlers.Reclassify(mgr))
			ops.POST("/scenarios", handlers.CreateScenario(repo, db))
			ops.GET("/audit", handlers.GetAuditLogs(db))
		}
	}
}
