// Package config provides Viper-based configuration loading for the dice session server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `mapstructure:"host"`
	// Port is the TCP port, read from PORT.
	Port int `mapstructure:"port"`
	// AllowedOrigins lists the origins allowed to open a websocket; "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// SendBuffer is the number of outbound messages queued per connection.
	SendBuffer int `mapstructure:"send_buffer"`
	// WriteWait bounds a single websocket write.
	WriteWait time.Duration `mapstructure:"write_wait"`
	// PongWait is how long a connection may go without answering a ping.
	PongWait time.Duration `mapstructure:"pong_wait"`
}

// Addr returns the "host:port" listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	// MaxAge is how long a session may live regardless of occupancy.
	MaxAge time.Duration `mapstructure:"max_age"`
	// SweepInterval is how often expired sessions are deleted.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// StoreConfig selects and configures the session store.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
	// RedisAddr is the "host:port" of the Redis server.
	RedisAddr string `mapstructure:"redis_addr"`
	// RedisPassword is optional.
	RedisPassword string `mapstructure:"redis_password"`
	// RedisDB is the Redis database index.
	RedisDB int `mapstructure:"redis_db"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.host":            "HOST",
	"server.port":            "PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"server.send_buffer":     "SEND_BUFFER",
	"server.write_wait":      "WS_WRITE_WAIT",
	"server.pong_wait":       "WS_PONG_WAIT",
	"session.max_age":        "SESSION_MAX_AGE",
	"session.sweep_interval": "SWEEP_INTERVAL",
	"store.backend":          "STORE",
	"store.redis_addr":       "REDIS_ADDR",
	"store.redis_password":   "REDIS_PASSWORD",
	"store.redis_db":         "REDIS_DB",
	"logging.level":          "LOG_LEVEL",
	"logging.format":         "LOG_FORMAT",
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStore(c.Store); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if len(s.AllowedOrigins) == 0 {
		errs = append(errs, "server.allowed_origins must not be empty")
	}
	if s.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("server.send_buffer must be >= 1, got %d", s.SendBuffer))
	}
	if s.WriteWait <= 0 {
		errs = append(errs, "server.write_wait must be positive")
	}
	if s.PongWait <= 0 {
		errs = append(errs, "server.pong_wait must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.MaxAge <= 0 {
		errs = append(errs, "session.max_age must be positive")
	}
	if s.SweepInterval <= 0 {
		errs = append(errs, "session.sweep_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateStore(s StoreConfig) error {
	switch s.Backend {
	case StoreMemory:
		return nil
	case StoreRedis:
		if s.RedisAddr == "" {
			return errors.New("store.redis_addr must not be empty when store.backend is redis")
		}
		if s.RedisDB < 0 {
			return fmt.Errorf("store.redis_db must be >= 0, got %d", s.RedisDB)
		}
		return nil
	default:
		return fmt.Errorf("store.backend must be one of [memory, redis], got %q", s.Backend)
	}
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

// Load reads configuration from the environment, after loading any .env file
// in the working directory, and validates the result.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load() (Config, error) {
	// A missing .env file is fine; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	setDefaults(v)

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

	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// splitOrigins flattens comma separated entries, since the env var arrives as one string.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.send_buffer", 32)
	v.SetDefault("server.write_wait", "10s")
	v.SetDefault("server.pong_wait", "60s")

	v.SetDefault("session.max_age", "24h")
	v.SetDefault("session.sweep_interval", "1h")

	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
