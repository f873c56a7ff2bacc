// Package config provides Viper-based configuration loading for the game server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the game protocol listener settings.
type ServerConfig struct {
	// Host is the bind address for the protocol listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the protocol listener.
	Port int `mapstructure:"port"`
	// MaxPlayers is advertised in the status response and the play login packet.
	MaxPlayers int `mapstructure:"max_players"`
	// MOTD is the server list description prefix.
	MOTD string `mapstructure:"motd"`
	// ReadTimeout bounds the wait for the next inbound frame. Zero disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds a single outbound write. Zero disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// OutboxSize is the number of frames buffered per session before the
	// session is considered a slow peer and disconnected.
	OutboxSize int `mapstructure:"outbox_size"`
	// PendingLimit caps broadcasts parked for a session that is not yet ready.
	PendingLimit int `mapstructure:"pending_limit"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DebugConfig holds diagnostic verbosity settings.
type DebugConfig struct {
	// Level 0 disables diagnostics, 1 enables the in-game overlay,
	// 2 and above additionally logs every inbound frame.
	Level int `mapstructure:"level"`
}

// GameplayConfig holds timing and spawn settings applied to every session.
type GameplayConfig struct {
	KeepAliveInterval time.Duration `mapstructure:"keepalive_interval"`
	// KeepAliveTimeout is how long a keep-alive id may stay unanswered.
	KeepAliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	// ViewRadius is the chunk radius streamed around spawn at play entry.
	ViewRadius int     `mapstructure:"view_radius"`
	SpawnX     float64 `mapstructure:"spawn_x"`
	SpawnY     float64 `mapstructure:"spawn_y"`
	SpawnZ     float64 `mapstructure:"spawn_z"`
}

// WorldConfig selects the terrain generator.
type WorldConfig struct {
	// Generator is "flat" or "lua".
	Generator string `mapstructure:"generator"`
	// Script is the Lua generator script path, required when Generator is "lua".
	Script string `mapstructure:"script"`
	// PregenRadius is the chunk radius generated at startup. Zero disables it.
	PregenRadius int `mapstructure:"pregen_radius"`
}

// ReplayConfig lists opaque frames replayed verbatim during configuration.
type ReplayConfig struct {
	RegistryFrames []string `mapstructure:"registry_frames"`
}

// OpsConfig holds the diagnostics HTTP and gRPC health listener settings.
type OpsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	HTTPHost string `mapstructure:"http_host"`
	HTTPPort int    `mapstructure:"http_port"`
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// HTTPAddr returns the "host:port" address of the diagnostics HTTP server.
func (o OpsConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", o.HTTPHost, o.HTTPPort)
}

// GRPCAddr returns the "host:port" address of the gRPC health server.
func (o OpsConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", o.GRPCHost, o.GRPCPort)
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Gameplay GameplayConfig `mapstructure:"gameplay"`
	World    WorldConfig    `mapstructure:"world"`
	Replay   ReplayConfig   `mapstructure:"replay"`
	Ops      OpsConfig      `mapstructure:"ops"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateServer(c.Server),
		validateLogging(c.Logging),
		validateDebug(c.Debug),
		validateGameplay(c.Gameplay),
		validateWorld(c.World),
		validateOps(c.Ops),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be 1-65535, got %d", name, port)
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if err := validatePort("server.port", s.Port); err != nil {
		errs = append(errs, err.Error())
	}
	if s.MaxPlayers < 1 {
		errs = append(errs, fmt.Sprintf("server.max_players must be >= 1, got %d", s.MaxPlayers))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.OutboxSize < 1 {
		errs = append(errs, fmt.Sprintf("server.outbox_size must be >= 1, got %d", s.OutboxSize))
	}
	if s.PendingLimit < 1 {
		errs = append(errs, fmt.Sprintf("server.pending_limit must be >= 1, got %d", s.PendingLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDebug(d DebugConfig) error {
	if d.Level < 0 {
		return fmt.Errorf("debug.level must be >= 0, got %d", d.Level)
	}
	return nil
}

func validateGameplay(g GameplayConfig) error {
	var errs []string
	if g.KeepAliveInterval <= 0 {
		errs = append(errs, "gameplay.keepalive_interval must be positive")
	}
	if g.KeepAliveTimeout < 0 {
		errs = append(errs, "gameplay.keepalive_timeout must not be negative")
	}
	if g.TickInterval <= 0 {
		errs = append(errs, "gameplay.tick_interval must be positive")
	}
	if g.ViewRadius < 0 || g.ViewRadius > 32 {
		errs = append(errs, fmt.Sprintf("gameplay.view_radius must be 0-32, got %d", g.ViewRadius))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	switch w.Generator {
	case "flat":
	case "lua":
		if w.Script == "" {
			return errors.New("world.script must be set when world.generator is lua")
		}
	default:
		return fmt.Errorf("world.generator must be one of [flat, lua], got %q", w.Generator)
	}
	if w.PregenRadius < 0 {
		return fmt.Errorf("world.pregen_radius must be >= 0, got %d", w.PregenRadius)
	}
	return nil
}

func validateOps(o OpsConfig) error {
	if !o.Enabled {
		return nil
	}
	var errs []string
	if err := validatePort("ops.http_port", o.HTTPPort); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePort("ops.grpc_port", o.GRPCPort); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with CUBE_ prefix
	v.SetEnvPrefix("CUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 25565)
	v.SetDefault("server.max_players", 100)
	v.SetDefault("server.motd", "A Cube Server")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.outbox_size", 1024)
	v.SetDefault("server.pending_limit", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("debug.level", 0)

	v.SetDefault("gameplay.keepalive_interval", "5s")
	v.SetDefault("gameplay.keepalive_timeout", "30s")
	v.SetDefault("gameplay.tick_interval", "50ms")
	v.SetDefault("gameplay.view_radius", 4)
	v.SetDefault("gameplay.spawn_x", 0.0)
	v.SetDefault("gameplay.spawn_y", -60.0)
	v.SetDefault("gameplay.spawn_z", 0.0)

	v.SetDefault("world.generator", "flat")
	v.SetDefault("world.script", "")
	v.SetDefault("world.pregen_radius", 4)

	v.SetDefault("replay.registry_frames", []string{})

	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.http_host", "127.0.0.1")
	v.SetDefault("ops.http_port", 9100)
	v.SetDefault("ops.grpc_host", "127.0.0.1")
	v.SetDefault("ops.grpc_port", 9101)
}
