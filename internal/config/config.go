// Package config loads settings from an optional YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

const (
	KeysXdotool = "xdotool"
	KeysDryRun  = "dry-run"
)

type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Cooldowns map[string]int `yaml:"cooldowns"` // seconds per group
	Keys      KeysConfig     `yaml:"keys"`
	Database  DatabaseConfig `yaml:"database"`
	NATS      NATSConfig     `yaml:"nats"`
	Log       LogConfig      `yaml:"log"`
	Client    ClientConfig   `yaml:"client"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	DefaultChannel string   `yaml:"default_channel"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TimerSec       int      `yaml:"timer_sec"`
	ResetSec       int      `yaml:"reset_sec"`
	AutoStart      bool     `yaml:"auto_start"`
}

type KeysConfig struct {
	Backend      string `yaml:"backend"`
	WindowName   string `yaml:"window_name"`
	FocusDelayMs int    `yaml:"focus_delay_ms"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // empty keeps the action log in memory only
}

type NATSConfig struct {
	URL           string `yaml:"url"` // empty disables the bridge
	SubjectPrefix string `yaml:"subject_prefix"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Dev        bool   `yaml:"dev"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ClientConfig struct {
	ServerURL      string `yaml:"server_url"`
	Channel        string `yaml:"channel"`
	Cooldowns      bool   `yaml:"cooldowns"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	OverlayAddr    string `yaml:"overlay_addr"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			DefaultChannel: "main",
			AllowedOrigins: []string{"*"},
			TimerSec:       60,
			ResetSec:       30,
			AutoStart:      true,
		},
		Cooldowns: map[string]int{
			"primary":  15,
			"camera":   10,
			"zoom_in":  5,
			"zoom_out": 5,
			"extend":   30,
		},
		Keys: KeysConfig{
			Backend:      KeysXdotool,
			WindowName:   "The Bibites",
			FocusDelayMs: 100,
		},
		NATS: NATSConfig{SubjectPrefix: "selection"},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			Channel:        "main",
			Cooldowns:      true,
			PollIntervalMs: 1000,
			OverlayAddr:    ":8081",
		},
	}
}

// LoadDotEnv loads .env when present.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load builds the config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SP_ADDR", c.Server.Addr)
	c.Server.DefaultChannel = getEnv("SP_CHANNEL", c.Server.DefaultChannel)
	c.Server.AllowedOrigins = getEnvAsList("SP_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.TimerSec = getEnvAsInt("SP_TIMER_SEC", c.Server.TimerSec)
	c.Server.ResetSec = getEnvAsInt("SP_RESET_SEC", c.Server.ResetSec)
	c.Server.AutoStart = getEnvAsBool("SP_AUTO_START", c.Server.AutoStart)

	c.Keys.Backend = getEnv("SP_KEYS_BACKEND", c.Keys.Backend)
	c.Keys.WindowName = getEnv("SP_WINDOW_NAME", c.Keys.WindowName)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.SubjectPrefix = getEnv("SP_NATS_PREFIX", c.NATS.SubjectPrefix)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Log.Dev = getEnvAsBool("LOG_DEV", c.Log.Dev)

	c.Client.ServerURL = getEnv("SP_SERVER_URL", c.Client.ServerURL)
	c.Client.Channel = getEnv("SP_CLIENT_CHANNEL", c.Client.Channel)
	c.Client.Cooldowns = getEnvAsBool("SP_COOLDOWNS", c.Client.Cooldowns)
	c.Client.PollIntervalMs = getEnvAsInt("SP_POLL_MS", c.Client.PollIntervalMs)
	c.Client.OverlayAddr = getEnv("SP_OVERLAY_ADDR", c.Client.OverlayAddr)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	bad := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Addr == "" {
		bad("server.addr is empty")
	}
	if c.Server.TimerSec <= 0 {
		bad("server.timer_sec must be positive, got %d", c.Server.TimerSec)
	}
	if c.Server.ResetSec <= 0 {
		bad("server.reset_sec must be positive, got %d", c.Server.ResetSec)
	}
	for group, secs := range c.Cooldowns {
		if secs <= 0 {
			bad("cooldowns.%s must be positive, got %d", group, secs)
		}
	}
	switch c.Keys.Backend {
	case KeysXdotool, KeysDryRun:
	default:
		bad("keys.backend must be %q or %q, got %q", KeysXdotool, KeysDryRun, c.Keys.Backend)
	}
	if c.Keys.Backend == KeysXdotool && c.Keys.WindowName == "" {
		bad("keys.window_name is required for xdotool")
	}
	if c.Client.PollIntervalMs <= 0 {
		bad("client.poll_interval_ms must be positive, got %d", c.Client.PollIntervalMs)
	}
	return err
}

func (c Config) CooldownDurations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Cooldowns))
	for group, secs := range c.Cooldowns {
		out[group] = time.Duration(secs) * time.Second
	}
	return out
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Client.PollIntervalMs) * time.Millisecond
}

func (c Config) FocusDelay() time.Duration {
	return time.Duration(c.Keys.FocusDelayMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
