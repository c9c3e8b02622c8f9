package main

import (
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"horde-sim/internal/api"
	"horde-sim/internal/config"
	"horde-sim/internal/debugdraw"
	"horde-sim/internal/game"
	"horde-sim/internal/game/spatial"
	"horde-sim/internal/replay"

	"github.com/joho/godotenv"
)

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

	log.Println("🧲 ================================")
	log.Println("🧲  HORDE SIM - COLLISION ENGINE")
	log.Println("🧲 ================================")

	appConfig := config.Load()
	worldCfg := appConfig.World
	serverCfg := appConfig.Server
	replayCfg := appConfig.Replay

	port := strconv.Itoa(serverCfg.Port)
	log.Printf("🗺️ World: %.0fx%.0f, cell %.0f, %d TPS",
		worldCfg.Width, worldCfg.Height, worldCfg.CellSize, worldCfg.TickRate)

	engine := game.NewEngine(game.EngineConfig{
		TickRate:    worldCfg.TickRate,
		WorldWidth:  worldCfg.Width,
		WorldHeight: worldCfg.Height,
		CellSize:    worldCfg.CellSize,
		Crowd: game.CrowdConfig{
			Passes: appConfig.Crowd.Passes,
			Slop:   appConfig.Crowd.Slop,
		},
	})
	engine.SetTickObserver(api.RecordTick)

	// Replay archive must be wired before the event log starts, since
	// the sink is fixed for the log's lifetime.
	var store *replay.Store
	if replayCfg.Enabled {
		s, err := replay.Open(replayCfg.Path)
		if err != nil {
			log.Printf("⚠️ Replay archive disabled: %v", err)
		} else {
			store = s
			engine.EventLog().SetSink(store.Consume)
			log.Printf("💾 Replay archive: %s (run %d)", replayCfg.Path, store.RunID())
		}
	}

	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	if err := engine.StartEventLog(eventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else {
		log.Printf("📝 Event log: %s", eventLogPath)
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	seedWorld(engine, worldCfg)

	renderer := debugdraw.NewRenderer(engine)
	server := api.NewServer(engine, renderer.RenderPNG)

	engine.Start()
	log.Println("✅ Simulation engine started")

	go func() {
		addr := ":" + port
		log.Printf("🔍 Debug frame: http://localhost%s/api/debug/frame.png", addr)

		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	engine.Stop()
	engine.StopEventLog()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("⚠️ Replay close error: %v", err)
		}
	}
	log.Println("👋 Goodbye!")
}

// seedWorld populates a demo scene: a focused player, an enemy ring, a
// perimeter of obstacles, scattered pickups, and a dense object pit
// that keeps the crowd solver busy.
func seedWorld(engine *game.Engine, world config.WorldConfig) {
	cx := world.Width / 2
	cy := world.Height / 2

	engine.AddEntity(game.EntitySpec{
		Pos:      game.Vec2{X: cx, Y: cy},
		Collider: &game.Collider{Kind: spatial.KindPlayer, Size: game.Vec2{X: 24, Y: 24}},
		Physics:  &game.Physics{},
		Health:   &game.Health{HP: 100, MaxHP: 100},
	})
	engine.SetFocus(game.Vec2{X: cx, Y: cy})

	// Enemy ring drifting inward.
	for i := 0; i < 24; i++ {
		angle := float64(i) / 24 * 2 * math.Pi
		pos := game.Vec2{X: cx + math.Cos(angle)*260, Y: cy + math.Sin(angle)*260}
		engine.AddEntity(game.EntitySpec{
			Pos:      pos,
			Collider: &game.Collider{Kind: spatial.KindEnemy, Size: game.Vec2{X: 20, Y: 20}},
			Physics:  &game.Physics{Vel: game.Vec2{X: -math.Cos(angle) * 12, Y: -math.Sin(angle) * 12}},
			Health:   &game.Health{HP: 30, MaxHP: 30},
		})
	}

	// Obstacle corners.
	for _, p := range []game.Vec2{
		{X: world.Width * 0.2, Y: world.Height * 0.2},
		{X: world.Width * 0.8, Y: world.Height * 0.2},
		{X: world.Width * 0.2, Y: world.Height * 0.8},
		{X: world.Width * 0.8, Y: world.Height * 0.8},
	} {
		engine.AddEntity(game.EntitySpec{
			Pos:      p,
			Collider: &game.Collider{Kind: spatial.KindObstacle, Size: game.Vec2{X: 48, Y: 48}},
		})
	}

	// Pickups along the mid line.
	for i := 0; i < 6; i++ {
		engine.AddEntity(game.EntitySpec{
			Pos:      game.Vec2{X: world.Width * (0.15 + 0.14*float64(i)), Y: cy},
			Collider: &game.Collider{Kind: spatial.KindPickup, Size: game.Vec2{X: 12, Y: 12}},
		})
	}

	// Crossfire: plain projectiles plus one persistent beam raking the
	// enemy ring.
	for i := 0; i < 4; i++ {
		angle := float64(i)/4*2*math.Pi + 0.3
		engine.AddEntity(game.EntitySpec{
			Pos:      game.Vec2{X: cx, Y: cy},
			Collider: &game.Collider{Kind: spatial.KindProjectile, Size: game.Vec2{X: 6, Y: 6}, Damage: 10},
			Physics:  &game.Physics{Vel: game.Vec2{X: math.Cos(angle) * 180, Y: math.Sin(angle) * 180}},
		})
	}
	engine.AddEntity(game.EntitySpec{
		Pos: game.Vec2{X: cx, Y: cy},
		Collider: &game.Collider{
			Kind: spatial.KindProjectile, Damage: 2,
			Beam: true, Dir: game.Vec2{X: 1, Y: 0}, Length: 400, HalfWidth: 6,
		},
	})

	// Object pit: a tight cluster the positional solver untangles.
	for row := 0; row < 6; row++ {
		for col := 0; col < 6; col++ {
			engine.AddEntity(game.EntitySpec{
				Pos: game.Vec2{
					X: world.Width*0.12 + float64(col)*10,
					Y: world.Height*0.65 + float64(row)*10,
				},
				Collider: &game.Collider{Kind: spatial.KindObject, Size: game.Vec2{X: 16, Y: 16}, Radius: 8},
				Physics:  &game.Physics{},
			})
		}
	}

	log.Printf("🌱 Seeded demo scene: %d entities", engine.World().Count())
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
