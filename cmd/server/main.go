package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/api"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/database"
	"github.com/playmatatu/orbitsim/internal/migrations"
	"github.com/playmatatu/orbitsim/internal/redis"
	"github.com/playmatatu/orbitsim/internal/scenario"
	"github.com/playmatatu/orbitsim/internal/sim"
	"github.com/playmatatu/orbitsim/internal/ws"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres is optional: without it scenarios and operators are unavailable
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		conn, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Unavailable, continuing without persistence: %v", err)
		} else {
			db = conn
			defer db.Close()
			if cfg.MigrateOnStart {
				log.Println("[MIGRATE] Running DB migrations on startup...")
				if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
					log.Fatalf("Failed to run migrations: %v", err)
				}
			}
		}
	}

	// Redis is optional: without it events go straight to the hub
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Printf("[REDIS] Unavailable, continuing without snapshots: %v", err)
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	mgr := sim.NewManager(db, rdb, cfg)
	defer mgr.Shutdown()

	hub := ws.NewHub(mgr)
	mgr.SetBroadcaster(hub)
	go hub.Run(ctx)
	ws.StartEventSubscriber(ctx, rdb, hub)

	var repo *scenario.Repository
	if db != nil {
		repo = scenario.NewRepository(db)
	}

	if cfg.StartDefaultSim {
		startDefault(mgr, cfg)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, mgr, hub, repo, db, rdb, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting orbitsim server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// startDefault launches one simulation from SCENARIO_FILE or the built-in
// system so a client has something to watch immediately.
func startDefault(mgr *sim.Manager, cfg *config.Config) {
	sc := scenario.Default()
	if cfg.ScenarioFile != "" {
		loaded, err := scenario.LoadFile(cfg.ScenarioFile)
		if err != nil {
			log.Printf("[SIM] Failed to load %s, using built-in system: %v", cfg.ScenarioFile, err)
		} else {
			sc = loaded
		}
	}

	s, err := mgr.Create(sc)
	if err != nil {
		log.Printf("[SIM] Failed to start default simulation: %v", err)
		return
	}
	log.Printf("[SIM] Default simulation %s running", s.ID)
}
