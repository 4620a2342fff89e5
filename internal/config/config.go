// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for grid, motion and server settings.
//
// Every section has a DefaultX constructor and an XFromEnv variant where
// environment variables take precedence over the defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// GRID CONFIGURATION
// =============================================================================

// GridConfig holds tile metrics and the collision layout source.
type GridConfig struct {
	TileWidth  int     // Tile width in pixels
	TileHeight int     // Tile height in pixels
	Threshold  float64 // Penetration allowed into a blocking cell, in pixels
	LayoutPath string  // Layout file; empty uses the built-in layout
}

// DefaultGrid returns the default grid configuration.
func DefaultGrid() GridConfig {
	return GridConfig{
		TileWidth:  64,
		TileHeight: 64,
		Threshold:  24,
	}
}

// GridFromEnv returns grid configuration with environment variable overrides.
func GridFromEnv() GridConfig {
	cfg := DefaultGrid()

	if w := getEnvInt("TILE_WIDTH", 0); w > 0 {
		cfg.TileWidth = w
	}
	if h := getEnvInt("TILE_HEIGHT", 0); h > 0 {
		cfg.TileHeight = h
	}
	if th := getEnvFloat("COLLISION_THRESHOLD", -1); th >= 0 {
		cfg.Threshold = th
	}
	cfg.LayoutPath = os.Getenv("LAYOUT_PATH")

	return cfg
}

// =============================================================================
// MOTION CONFIGURATION
// =============================================================================

// MotionConfig holds the default speed model for spawned entities.
// Rates are per millisecond of elapsed time.
type MotionConfig struct {
	MinSpeed      float64
	MaxSpeed      float64
	Acceleration  float64
	Deceleration  float64
	RotationSpeed float64
}

// DefaultMotion returns the default motion configuration.
func DefaultMotion() MotionConfig {
	return MotionConfig{
		MinSpeed:      0.05,
		MaxSpeed:      0.5,
		Acceleration:  0.0003,
		Deceleration:  0.0005,
		RotationSpeed: 0.003,
	}
}

// MotionFromEnv returns motion configuration with environment variable overrides.
func MotionFromEnv() MotionConfig {
	cfg := DefaultMotion()

	if v := getEnvFloat("MIN_SPEED", -1); v >= 0 {
		cfg.MinSpeed = v
	}
	if v := getEnvFloat("MAX_SPEED", 0); v > 0 {
		cfg.MaxSpeed = v
	}
	if v := getEnvFloat("ACCELERATION", 0); v > 0 {
		cfg.Acceleration = v
	}
	if v := getEnvFloat("DECELERATION", 0); v > 0 {
		cfg.Deceleration = v
	}
	if v := getEnvFloat("ROTATION_SPEED", 0); v > 0 {
		cfg.RotationSpeed = v
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds tick loop settings.
type SimConfig struct {
	TickRate     int    // Ticks per second
	EventLogPath string // JSONL event log; empty disables file output
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:     60,
		EventLogPath: "events.jsonl",
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if r := getEnvInt("TICK_RATE", 0); r > 0 {
		cfg.TickRate = r
	}
	if p, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = p
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits caps engine state.
type ResourceLimits struct {
	MaxEntities         int // Hard cap on live entities
	MaxSnapshotEntities int // Entities copied into each snapshot
	MaxEffectsPerTick   int // Terrain effects kept per snapshot
	MaxPendingEdits     int // Cell edits queued between ticks
	MaxRouteFields      int // Route fields cached at once
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxEntities:         1000,
		MaxSnapshotEntities: 500,
		MaxEffectsPerTick:   64,
		MaxPendingEdits:     256,
		MaxRouteFields:      64,
	}
}

// LimitsFromEnv returns resource limits with environment variable overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if n := getEnvInt("MAX_ENTITIES", 0); n > 0 {
		cfg.MaxEntities = n
	}
	if n := getEnvInt("MAX_PENDING_EDITS", 0); n > 0 {
		cfg.MaxPendingEdits = n
	}
	if n := getEnvInt("MAX_ROUTE_FIELDS", 0); n > 0 {
		cfg.MaxRouteFields = n
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	DebugAddr       string        // pprof and /metrics, localhost only
	AllowedOrigins  []string      // CORS origins
	RequestsPerSec  float64       // Per-IP rate limit
	Burst           int           // Per-IP burst
	BroadcastPeriod time.Duration // WebSocket snapshot interval
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:            3000,
		DebugAddr:       "127.0.0.1:6060",
		AllowedOrigins:  []string{"http://localhost:*", "http://127.0.0.1:*"},
		RequestsPerSec:  20,
		Burst:           40,
		BroadcastPeriod: 50 * time.Millisecond,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if a := os.Getenv("DEBUG_ADDR"); a != "" {
		cfg.DebugAddr = a
	}
	if o := os.Getenv("ALLOWED_ORIGINS"); o != "" {
		cfg.AllowedOrigins = splitList(o)
	}
	if r := getEnvFloat("RATE_LIMIT_RPS", 0); r > 0 {
		cfg.RequestsPerSec = r
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	if ms := getEnvInt("BROADCAST_MS", 0); ms > 0 {
		cfg.BroadcastPeriod = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Grid   GridConfig
	Motion MotionConfig
	Sim    SimConfig
	Limits ResourceLimits
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Grid:   GridFromEnv(),
		Motion: MotionFromEnv(),
		Sim:    SimFromEnv(),
		Limits: LimitsFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
