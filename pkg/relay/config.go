package relay

import (
	"net/http"
	"time"
)

// Config holds configuration for the relay server.
type Config struct {
	// Address is the address to listen on.
	// Default: ":3000".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin validates the request origin on upgrade.
	// Default: allows all origins.
	CheckOrigin func(r *http.Request) bool

	// ReadTimeout is the maximum time to wait for a client message
	// before the connection is considered dead. Pongs reset it.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ShutdownTimeout is the maximum time for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 256KB (stroke paths can be long).
	MaxMessageSize int64

	// MaxSessions limits concurrent sessions. 0 means no limit.
	// Default: 0.
	MaxSessions int

	// MaxLogEntries caps the canvas log; oldest entries are evicted
	// beyond it. 0 means unbounded.
	// Default: 0.
	MaxLogEntries int

	// MaxEventQueue is the hub command channel buffer.
	// Default: 1024.
	MaxEventQueue int

	// PersistQuiescence is the debounce window for durable writes.
	// Default: 2 seconds.
	PersistQuiescence time.Duration

	// PollWait is how long a long-poll events request is held open
	// when no events are queued.
	// Default: 25 seconds.
	PollWait time.Duration

	// PollIdleTimeout is how long a polling session may go without any
	// request before it is treated as disconnected.
	// Default: 60 seconds.
	PollIdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":3000",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(r *http.Request) bool { return true },
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		MaxMessageSize:    256 * 1024,
		MaxEventQueue:     1024,
		PersistQuiescence: 2 * time.Second,
		PollWait:          25 * time.Second,
		PollIdleTimeout:   60 * time.Second,
	}
}

// withDefaults fills in defaults for any unset fields.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	if c.Address == "" {
		c.Address = defaults.Address
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaults.ReadBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = defaults.WriteBufferSize
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = defaults.CheckOrigin
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.MaxEventQueue == 0 {
		c.MaxEventQueue = defaults.MaxEventQueue
	}
	if c.PersistQuiescence == 0 {
		c.PersistQuiescence = defaults.PersistQuiescence
	}
	if c.PollWait == 0 {
		c.PollWait = defaults.PollWait
	}
	if c.PollIdleTimeout == 0 {
		c.PollIdleTimeout = defaults.PollIdleTimeout
	}
	return c
}
