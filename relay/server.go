// Package relay is the public entry point for embedding the roomlink server.
package relay

import (
	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/config"
	"github.com/luciancaetano/roomlink/internal/httpapi"
	"github.com/luciancaetano/roomlink/internal/logging"
)

type Config = config.Config
type RoomConfig = config.RoomConfig
type RateLimitConfig = config.RateLimitConfig
type FileDropConfig = config.FileDropConfig
type LogConfig = config.LogConfig

// DefaultConfig returns the built-in defaults: listen on :8080, 2s handshake
// window, 5s room claim window, the default rate gate and a 10 minute upload
// TTL.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads configuration from an optional file plus ROOMLINK_*
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// New builds a server with a logger constructed from cfg.Log.
//
// Example:
//
//	cfg := relay.DefaultConfig()
//	cfg.Addr = ":9000"
//
//	srv, err := relay.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
func New(cfg *Config) (roomlink.Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, err
	}
	return httpapi.New(cfg, logger)
}

// NewWithLogger builds a server on a caller-supplied logger.
func NewWithLogger(cfg *Config, logger *zap.Logger) (roomlink.Server, error) {
	return httpapi.New(cfg, logger)
}
