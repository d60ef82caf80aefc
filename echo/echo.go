// Package echo is the public entry point for constructing a wirecho server.
package echo

import (
	"github.com/wirecho/wirecho"
	"github.com/wirecho/wirecho/internal/server"
)

type Config = server.Config
type RateLimitConfig = server.RateLimitConfig
type Reporter = server.Reporter
type OnConnectFn = server.OnConnectFn
type OnDisconnectFn = server.OnDisconnectFn

// New creates a WebSocket echo server from the given configuration.
//
// Example:
//
//	srv := echo.New(&echo.Config{
//	    Addr:    ":8080",
//	    Workers: 4,
//	    OnConnect: func(s wirecho.Session) {
//	        log.Printf("session connected: %s", s.ID())
//	    },
//	})
//	if err := srv.Start(ctx); err != nil {
//	    // bind failure, nothing was accepted
//	}
func New(cfg *Config) wirecho.Server {
	return server.New(cfg)
}

// DefaultRateLimitConfig returns the default rate limit configuration
// (100 messages per second, burst 200).
func DefaultRateLimitConfig() *RateLimitConfig {
	return server.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled.
func NoRateLimit() *RateLimitConfig {
	return server.NoRateLimit()
}
