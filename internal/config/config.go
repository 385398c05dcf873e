// Package config loads server configuration: built-in defaults, an optional
// YAML file, and ROOMLINK_* environment overrides, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrConfigRead = errors.New("read config")

// Config is the full server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `mapstructure:"addr"`
	// PublicDir is the static asset directory. Empty disables static
	// serving.
	PublicDir string `mapstructure:"public_dir"`
	// AllowedOrigins is the WebSocket origin allowlist, matched exactly
	// against the Origin header. Empty allows every origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	Room      RoomConfig      `mapstructure:"room"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	FileDrop  FileDropConfig  `mapstructure:"file_drop"`
	Log       LogConfig       `mapstructure:"log"`
}

// RoomConfig holds the room/connection lifecycle windows.
type RoomConfig struct {
	// AuthTimeout is the per-connection handshake window.
	AuthTimeout time.Duration `mapstructure:"auth_timeout"`
	// ClaimTimeout is how long a new room waits for its host.
	ClaimTimeout time.Duration `mapstructure:"claim_timeout"`
}

// RateLimitConfig holds the per-connection inbound gate knobs.
type RateLimitConfig struct {
	Capacity       int           `mapstructure:"capacity"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
	WarnWindow     time.Duration `mapstructure:"warn_window"`
	WarnLimit      int           `mapstructure:"warn_limit"`
	Enabled        bool          `mapstructure:"enabled"`
}

// FileDropConfig holds the ephemeral upload store knobs.
type FileDropConfig struct {
	// Dir is where uploads live. Empty disables the file drop endpoints.
	Dir string `mapstructure:"dir"`
	// TTL is how long an upload stays available.
	TTL time.Duration `mapstructure:"ttl"`
}

// LogConfig holds logger knobs.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("public_dir", "public")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("room.auth_timeout", 2*time.Second)
	v.SetDefault("room.claim_timeout", 5*time.Second)
	v.SetDefault("rate_limit.capacity", 20)
	v.SetDefault("rate_limit.refill_interval", 100*time.Millisecond)
	v.SetDefault("rate_limit.warn_window", 5*time.Second)
	v.SetDefault("rate_limit.warn_limit", 3)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("file_drop.dir", "uploads")
	v.SetDefault("file_drop.ttl", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Default returns the built-in defaults without touching files or the
// environment. Kept in sync with setDefaults.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		PublicDir:      "public",
		AllowedOrigins: []string{},
		Room: RoomConfig{
			AuthTimeout:  2 * time.Second,
			ClaimTimeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Capacity:       20,
			RefillInterval: 100 * time.Millisecond,
			WarnWindow:     5 * time.Second,
			WarnLimit:      3,
			Enabled:        true,
		},
		FileDrop: FileDropConfig{
			Dir: "uploads",
			TTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply; a named file that cannot be read is an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ROOMLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
