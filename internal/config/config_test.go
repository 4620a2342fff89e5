package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	grid := DefaultGrid()
	if grid.TileWidth != 64 || grid.TileHeight != 64 || grid.Threshold != 24 {
		t.Errorf("DefaultGrid() = %+v", grid)
	}

	motion := DefaultMotion()
	if motion.MaxSpeed != 0.5 || motion.Acceleration != 0.0003 || motion.Deceleration != 0.0005 {
		t.Errorf("DefaultMotion() = %+v", motion)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TILE_WIDTH", "32")
	t.Setenv("TILE_HEIGHT", "16")
	t.Setenv("COLLISION_THRESHOLD", "0")
	t.Setenv("LAYOUT_PATH", "maps/level1.txt")
	t.Setenv("TICK_RATE", "30")
	t.Setenv("EVENT_LOG_PATH", "")
	t.Setenv("MAX_SPEED", "1.25")
	t.Setenv("MAX_ENTITIES", "10")
	t.Setenv("MAX_ROUTE_FIELDS", "16")
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BROADCAST_MS", "100")

	cfg := Load()

	if cfg.Grid.TileWidth != 32 || cfg.Grid.TileHeight != 16 {
		t.Errorf("tile size = %dx%d, want 32x16", cfg.Grid.TileWidth, cfg.Grid.TileHeight)
	}
	if cfg.Grid.Threshold != 0 {
		t.Errorf("Threshold = %v, want 0", cfg.Grid.Threshold)
	}
	if cfg.Grid.LayoutPath != "maps/level1.txt" {
		t.Errorf("LayoutPath = %q", cfg.Grid.LayoutPath)
	}
	if cfg.Sim.TickRate != 30 {
		t.Errorf("TickRate = %d, want 30", cfg.Sim.TickRate)
	}
	if cfg.Sim.EventLogPath != "" {
		t.Errorf("EventLogPath = %q, want empty", cfg.Sim.EventLogPath)
	}
	if cfg.Motion.MaxSpeed != 1.25 {
		t.Errorf("MaxSpeed = %v, want 1.25", cfg.Motion.MaxSpeed)
	}
	if cfg.Limits.MaxEntities != 10 {
		t.Errorf("MaxEntities = %d, want 10", cfg.Limits.MaxEntities)
	}
	if cfg.Limits.MaxRouteFields != 16 {
		t.Errorf("MaxRouteFields = %d, want 16", cfg.Limits.MaxRouteFields)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.BroadcastPeriod != 100*time.Millisecond {
		t.Errorf("BroadcastPeriod = %v", cfg.Server.BroadcastPeriod)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("TILE_WIDTH", "wide")
	t.Setenv("TICK_RATE", "-5")
	t.Setenv("MAX_SPEED", "fast")

	cfg := Load()

	if cfg.Grid.TileWidth != 64 {
		t.Errorf("TileWidth = %d, want default 64", cfg.Grid.TileWidth)
	}
	if cfg.Sim.TickRate != 60 {
		t.Errorf("TickRate = %d, want default 60", cfg.Sim.TickRate)
	}
	if cfg.Motion.MaxSpeed != 0.5 {
		t.Errorf("MaxSpeed = %v, want default 0.5", cfg.Motion.MaxSpeed)
	}
}
