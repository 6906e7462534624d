package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config file path.
const EnvPath = "GRIDWALK_CONFIG"

// DefaultPath is used when neither the flag nor EnvPath is set.
const DefaultPath = "config/gridwalk.toml"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Map       MapConfig       `toml:"map"`
	Movement  MovementConfig  `toml:"movement"`
	Database  DatabaseConfig  `toml:"database"`
	Scripting ScriptingConfig `toml:"scripting"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	Transport         string        `toml:"transport"` // "tcp" or "websocket"
	BindAddress       string        `toml:"bind_address"`
	ServerAddress     string        `toml:"server_address"` // client dial target
	WSPath            string        `toml:"ws_path"`
	TickRate          time.Duration `toml:"tick_rate"`
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	PacketsPerSecond  int           `toml:"packets_per_second"` // 0 = unlimited
	WriteTimeout      time.Duration `toml:"write_timeout"`
}

type MapConfig struct {
	File string `toml:"file"`
	Name string `toml:"name"`
}

type MovementConfig struct {
	DefaultSpeed float32 `toml:"default_speed"` // pixels per second
	SpawnX       int32   `toml:"spawn_x"`
	SpawnY       int32   `toml:"spawn_y"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = in-memory store
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type ScriptingConfig struct {
	ChatScript string `toml:"chat_script"` // empty = no hook
}

type MetricsConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // "json" or "console"
	File       string `toml:"file"`   // empty = stderr only
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// ResolvePath picks the config path: explicit flag value, then EnvPath, then
// DefaultPath.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Network.Transport {
	case "tcp", "websocket":
	default:
		return fmt.Errorf("network.transport: unknown transport %q", c.Network.Transport)
	}
	if c.Network.TickRate <= 0 {
		return fmt.Errorf("network.tick_rate must be positive, got %s", c.Network.TickRate)
	}
	if c.Network.InQueueSize <= 0 || c.Network.OutQueueSize <= 0 {
		return fmt.Errorf("network queue sizes must be positive")
	}
	return nil
}

// Defaults returns the configuration used for any key the file omits.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "gridwalk",
		},
		Network: NetworkConfig{
			Transport:         "tcp",
			BindAddress:       "0.0.0.0:7201",
			ServerAddress:     "127.0.0.1:7201",
			WSPath:            "/ws",
			TickRate:          50 * time.Millisecond,
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			PacketsPerSecond:  60,
			WriteTimeout:      10 * time.Second,
		},
		Map: MapConfig{
			File: "data/maps.yaml",
			Name: "meadow",
		},
		Movement: MovementConfig{
			DefaultSpeed: 128,
			SpawnX:       1,
			SpawnY:       1,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Scripting: ScriptingConfig{
			ChatScript: "scripts/chat.lua",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Interval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
