package main

import (
	"context"
	_ "embed"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tile-engine/internal/api"
	"tile-engine/internal/config"
	"tile-engine/internal/game"
	"tile-engine/internal/game/collision"
	"tile-engine/internal/game/spatial"

	"github.com/joho/godotenv"
)

//go:embed default_layout.txt
var defaultLayout string

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🧱 ================================")
	log.Println("🧱  TILE ENGINE")
	log.Println("🧱 ================================")

	appConfig := config.Load()
	serverCfg := appConfig.Server

	layer, err := loadLayer(appConfig.Grid)
	if err != nil {
		log.Fatalf("❌ Failed to load layout: %v", err)
	}
	log.Printf("🗺️ Layout: %dx%d cells, %dx%d px tiles, %.0fpx threshold",
		layer.Width(), layer.Height(), appConfig.Grid.TileWidth, appConfig.Grid.TileHeight, appConfig.Grid.Threshold)

	engine := game.NewEngine(layer, game.EngineConfig{
		TickRate: appConfig.Sim.TickRate,
		Motion:   motionFromConfig(appConfig.Motion),
		Limits:   limitsFromConfig(appConfig.Limits),
		OnTick:   api.RecordTickStats,
	})
	limits := engine.Limits()
	log.Printf("🛡️ Resource limits: %d entities, %d per snapshot, %d effects, %d pending edits, %d route fields",
		limits.MaxEntities, limits.MaxSnapshotEntities, limits.MaxEffectsPerTick, limits.MaxPendingEdits, limits.MaxRouteFields)

	if err := engine.StartEventLog(appConfig.Sim.EventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if appConfig.Sim.EventLogPath != "" {
		log.Printf("📝 Event log: %s", appConfig.Sim.EventLogPath)
	}
	api.ExportEventLogStats(func() game.EventLogStats { return engine.Stats().EventLog })

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = serverCfg.DebugAddr
		debugCfg.BasicAuthUser = os.Getenv("DEBUG_USER")
		debugCfg.BasicAuthPass = os.Getenv("DEBUG_PASS")
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	if spawns := os.Getenv("SPAWN_CELLS"); spawns != "" {
		spawnInitial(engine, spawns)
	}

	server := api.NewServer(engine, serverCfg)

	engine.Start()
	log.Printf("✅ Engine started at %d TPS", appConfig.Sim.TickRate)

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("🔌 WebSocket: ws://localhost%s/ws", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
	engine.Stop()
	engine.StopEventLog()
	log.Println("👋 Goodbye!")
}

func loadLayer(cfg config.GridConfig) (*collision.Layer, error) {
	layerCfg := collision.Config{
		Metrics:   spatial.Metrics{TileWidth: cfg.TileWidth, TileHeight: cfg.TileHeight},
		Threshold: cfg.Threshold,
	}

	if cfg.LayoutPath == "" {
		log.Println("🗺️ LAYOUT_PATH not set, using built-in arena")
		return collision.LoadLayout(strings.NewReader(defaultLayout), layerCfg)
	}

	log.Printf("🗺️ Loading layout from %s", cfg.LayoutPath)
	return collision.LoadLayoutFile(cfg.LayoutPath, layerCfg)
}

func motionFromConfig(cfg config.MotionConfig) game.Motion {
	m := game.DefaultMotion()
	m.MinSpeed = cfg.MinSpeed
	m.MaxSpeed = cfg.MaxSpeed
	m.Acceleration = cfg.Acceleration
	m.Deceleration = cfg.Deceleration
	m.RotationSpeed = cfg.RotationSpeed
	return m
}

func limitsFromConfig(cfg config.ResourceLimits) game.ResourceLimits {
	return game.ResourceLimits{
		MaxEntities:         cfg.MaxEntities,
		MaxSnapshotEntities: cfg.MaxSnapshotEntities,
		MaxEffectsPerTick:   cfg.MaxEffectsPerTick,
		MaxPendingEdits:     cfg.MaxPendingEdits,
		MaxRouteFields:      cfg.MaxRouteFields,
	}
}

// spawnInitial places entities listed as "x:y,x:y" cell pairs.
func spawnInitial(engine *game.Engine, list string) {
	for i, pair := range strings.Split(list, ",") {
		xs, ys, ok := strings.Cut(strings.TrimSpace(pair), ":")
		x, errX := strconv.Atoi(xs)
		y, errY := strconv.Atoi(ys)
		if !ok || errX != nil || errY != nil {
			log.Printf("⚠️ Ignoring spawn cell %q", pair)
			continue
		}

		if _, err := engine.Spawn(game.SpawnOptions{
			Name: "spawn-" + strconv.Itoa(i+1),
			Cell: spatial.Point{X: x, Y: y},
		}); err != nil {
			log.Printf("⚠️ Spawn at (%d,%d) failed: %v", x, y, err)
		}
	}
}
