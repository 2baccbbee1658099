package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL           string
	SnapshotTTLSeconds int

	// Server
	Port        string
	FrontendURL string

	// Physics
	Gravity            float64
	DistanceScale      float64
	Timestep           float64
	MergeRadiusDamping float64
	HysteresisBonus    float64
	TrailMaxPoints     int
	TrailLoopCheck     int

	// Scheduling
	FrameIntervalMs          int
	HierarchyIntervalSeconds int
	TelemetryCapacity        int
	MaxSimulations           int

	// Scenario loaded for the default simulation (empty = built-in system)
	ScenarioFile    string
	StartDefaultSim bool

	// Security
	JWTSecret         string
	RequireAuth       bool
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	env := getEnv("APP_ENV", "development")

	return &Config{
		// Environment
		Environment: env,

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/orbitsim?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		// Redis
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SnapshotTTLSeconds: getEnvInt("SNAPSHOT_TTL_SECONDS", 3600),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Physics
		Gravity:            getEnvFloat("SIM_GRAVITY", 6.6743e-11),
		DistanceScale:      getEnvFloat("SIM_DISTANCE_SCALE", 2e8),
		Timestep:           getEnvFloat("SIM_TIMESTEP", 0.005),
		MergeRadiusDamping: getEnvFloat("MERGE_RADIUS_DAMPING", 0.1),
		HysteresisBonus:    getEnvFloat("HYSTERESIS_BONUS", 1.2),
		TrailMaxPoints:     getEnvInt("TRAIL_MAX_POINTS", 10000),
		TrailLoopCheck:     getEnvInt("TRAIL_LOOP_CHECK_POINTS", 500),

		// Scheduling
		FrameIntervalMs:          getEnvInt("SIM_FRAME_INTERVAL_MS", 16),
		HierarchyIntervalSeconds: getEnvInt("HIERARCHY_INTERVAL_SECONDS", 5),
		TelemetryCapacity:        getEnvInt("TELEMETRY_CAPACITY", 20000),
		MaxSimulations:           getEnvInt("MAX_SIMULATIONS", 16),

		ScenarioFile:    getEnv("SCENARIO_FILE", ""),
		StartDefaultSim: getEnvBool("START_DEFAULT_SIM", true),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		RequireAuth:       getEnvBool("REQUIRE_AUTH", env == "production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
