package server

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/wirecho/wirecho"
)

// OnConnectFn is called after a session's WebSocket handshake completes and
// before its first read. This is the place to track connections or send a
// welcome message.
//
// Note: the callback runs on a dispatch worker. Avoid long-running work that
// would hold the worker.
type OnConnectFn = func(session wirecho.Session)

// OnDisconnectFn is called when a session ends. voluntary is true when the
// session ended with an expected closure (clean close frame or EOF), false
// when a transport failure ended it.
type OnDisconnectFn = func(session wirecho.Session, voluntary bool)

// RateLimitConfig defines per-session rate limiting for incoming messages.
type RateLimitConfig struct {
	// MessagesPerSecond defines how many messages a session may send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration.
// Allows 100 messages per second with burst of 200.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled.
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// Config configures a Server.
type Config struct {
	// Addr is the TCP endpoint to bind, e.g. ":8080" or "0.0.0.0:8080".
	Addr string

	// Workers is the dispatch pool size. Values below 1 are clamped to 1;
	// zero selects DefaultWorkers.
	Workers int

	// ServerName is attached to the handshake response as the Server
	// header. Defaults to DefaultServerName.
	ServerName string

	// RateLimit configures per-session rate limiting. Nil disables it; an
	// echo server has no reason to throttle its own mirror traffic unless
	// the operator asks for it.
	RateLimit *RateLimitConfig

	// Reporter receives one call per non-benign failure. Nil selects a
	// zerolog-backed reporter writing through the global logger.
	Reporter Reporter

	// OnConnect, when non-nil, is called for every completed handshake.
	OnConnect OnConnectFn

	// OnDisconnect, when non-nil, is called for every ended session.
	OnDisconnect OnDisconnectFn

	// HandshakeTimeout, IdleTimeout and WriteTimeout override the suggested
	// server-role deadlines when positive.
	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	WriteTimeout     time.Duration
}

const (
	// DefaultWorkers is the dispatch pool size used when Config.Workers is zero.
	DefaultWorkers = 4

	// DefaultServerName identifies this server in handshake responses.
	DefaultServerName = wirecho.Version
)

func (c *Config) normalize() Config {
	out := Config{}
	if c != nil {
		out = *c
	}

	if out.Workers == 0 {
		out.Workers = DefaultWorkers
	}
	if out.Workers < 1 {
		out.Workers = 1
	}
	if out.ServerName == "" {
		out.ServerName = DefaultServerName
	}
	if out.Reporter == nil {
		out.Reporter = NewLogReporter(log())
	}

	return out
}
