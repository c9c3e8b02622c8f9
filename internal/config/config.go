// Package config provides centralized configuration management.
// This is the single source of truth for simulation and server
// settings; everything else reads these structs.
package config

import (
	"os"
	"strconv"
)

// WorldConfig sizes the simulated world and its tick cadence. The
// world extent is shared between the engine and the debug renderer.
type WorldConfig struct {
	Width    float64 // world units
	Height   float64
	CellSize float64 // spatial grid cell edge
	TickRate int     // ticks per second
}

// DefaultWorld returns the stock arena sizing.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:    1280,
		Height:   720,
		CellSize: 64,
		TickRate: 30,
	}
}

// WorldFromEnv returns world configuration with environment overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if w := getEnvFloat("WORLD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("WORLD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if cs := getEnvFloat("GRID_CELL_SIZE", 0); cs > 0 {
		cfg.CellSize = cs
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}

	return cfg
}

// CrowdConfig tunes the dense object solver. The per-pair bias and
// restitution are compiled into the engine; only the pass count and
// slop were ever tuned live.
type CrowdConfig struct {
	Passes int
	Slop   float64
}

// DefaultCrowd returns the stock solver tuning.
func DefaultCrowd() CrowdConfig {
	return CrowdConfig{
		Passes: 10,
		Slop:   0.01,
	}
}

// CrowdFromEnv returns crowd configuration with environment overrides.
func CrowdFromEnv() CrowdConfig {
	cfg := DefaultCrowd()

	if p := getEnvInt("CROWD_PASSES", 0); p > 0 {
		cfg.Passes = p
	}
	if s := getEnvFloat("CROWD_SLOP", 0); s > 0 {
		cfg.Slop = s
	}

	return cfg
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 3000}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// ReplayConfig controls the sqlite event archive.
type ReplayConfig struct {
	Enabled bool
	Path    string
}

// DefaultReplay returns the default replay configuration.
func DefaultReplay() ReplayConfig {
	return ReplayConfig{
		Enabled: true,
		Path:    "replay.db",
	}
}

// ReplayFromEnv returns replay configuration with environment overrides.
func ReplayFromEnv() ReplayConfig {
	cfg := DefaultReplay()

	if os.Getenv("REPLAY_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if p := os.Getenv("REPLAY_PATH"); p != "" {
		cfg.Path = p
	}

	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World  WorldConfig
	Crowd  CrowdConfig
	Server ServerConfig
	Replay ReplayConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:  WorldFromEnv(),
		Crowd:  CrowdFromEnv(),
		Server: ServerFromEnv(),
		Replay: ReplayFromEnv(),
	}
}

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
