// Package config loads and validates sketchwire.json, the server's
// configuration file. Absent fields fall back to defaults, so an empty
// file (or no file at all) yields a runnable in-memory server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = "sketchwire.json"

// Default values applied to absent fields.
const (
	DefaultAddress       = ":3000"
	DefaultBackend       = "file"
	DefaultSnapshotPath  = "data/canvas.json"
	DefaultQuiescenceMS  = 2000
	DefaultMaxSessions   = 0 // unlimited
	DefaultMaxLogEntries = 0 // unlimited
)

// Backend names accepted in Persistence.Backend.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendS3     = "s3"
	BackendNone   = "none"
)

// Config represents the complete sketchwire.json configuration.
type Config struct {
	// Address is the listen address, host:port.
	Address string `json:"address,omitempty"`

	// Persistence selects and configures the snapshot backend.
	Persistence PersistenceConfig `json:"persistence,omitempty"`

	// Relay tunes the connection layer.
	Relay RelayConfig `json:"relay,omitempty"`
}

// PersistenceConfig selects the durable snapshot backend.
type PersistenceConfig struct {
	// Backend is one of "file", "memory", "redis", "s3", or "none".
	Backend string `json:"backend,omitempty"`

	// Path is the snapshot file location for the file backend.
	Path string `json:"path,omitempty"`

	// QuiescenceMS is the debounce window in milliseconds: a write
	// lands this long after the last canvas change.
	QuiescenceMS int `json:"quiescenceMs,omitempty"`

	// Redis configures the redis backend.
	Redis RedisConfig `json:"redis,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty"`
}

// RedisConfig contains redis backend settings.
type RedisConfig struct {
	// Addr is the redis server address, host:port.
	Addr string `json:"addr,omitempty"`

	// Password authenticates against the server, if set.
	Password string `json:"password,omitempty"`

	// DB selects the redis database number.
	DB int `json:"db,omitempty"`

	// Key is the key the snapshot is stored under.
	Key string `json:"key,omitempty"`
}

// S3Config contains s3 backend settings.
type S3Config struct {
	// Bucket is the bucket the snapshot lives in. Required when the
	// s3 backend is selected.
	Bucket string `json:"bucket,omitempty"`

	// Key is the object key for the snapshot.
	Key string `json:"key,omitempty"`

	// Region overrides the region from the ambient AWS configuration.
	Region string `json:"region,omitempty"`
}

// RelayConfig tunes the connection layer.
type RelayConfig struct {
	// MaxSessions caps concurrent connections. Zero means unlimited.
	MaxSessions int `json:"maxSessions,omitempty"`

	// MaxLogEntries caps the canvas log; the oldest entries are
	// evicted past it. Zero means unlimited.
	MaxLogEntries int `json:"maxLogEntries,omitempty"`

	// HeartbeatSeconds is the ping interval for WebSocket sessions.
	HeartbeatSeconds int `json:"heartbeatSeconds,omitempty"`

	// ShutdownSeconds bounds graceful shutdown.
	ShutdownSeconds int `json:"shutdownSeconds,omitempty"`
}

// New returns a configuration with all defaults applied.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from path. A missing file returns the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = DefaultBackend
	}
	if c.Persistence.Path == "" {
		c.Persistence.Path = DefaultSnapshotPath
	}
	if c.Persistence.QuiescenceMS <= 0 {
		c.Persistence.QuiescenceMS = DefaultQuiescenceMS
	}
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case BackendFile, BackendMemory, BackendNone:
	case BackendRedis:
		if c.Persistence.Redis.Addr == "" {
			return fmt.Errorf("config: redis backend requires persistence.redis.addr")
		}
	case BackendS3:
		if c.Persistence.S3.Bucket == "" {
			return fmt.Errorf("config: s3 backend requires persistence.s3.bucket")
		}
	default:
		return fmt.Errorf("config: unknown persistence backend %q", c.Persistence.Backend)
	}

	if c.Relay.MaxSessions < 0 {
		return fmt.Errorf("config: relay.maxSessions must not be negative")
	}
	if c.Relay.MaxLogEntries < 0 {
		return fmt.Errorf("config: relay.maxLogEntries must not be negative")
	}
	return nil
}

// Quiescence returns the persistence debounce window as a duration.
func (c *Config) Quiescence() time.Duration {
	return time.Duration(c.Persistence.QuiescenceMS) * time.Millisecond
}

// Heartbeat returns the WebSocket ping interval, or zero to use the
// relay default.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.Relay.HeartbeatSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown bound, or zero to use
// the relay default.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Relay.ShutdownSeconds) * time.Second
}
