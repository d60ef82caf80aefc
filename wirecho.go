package wirecho

import (
	"context"
	"net"
)

// Server is a WebSocket echo server bound to a single TCP endpoint.
//
// A Server owns its listener and every session spawned from it. Sessions are
// fully independent of each other: an error on one connection never affects
// another connection or the listener itself.
//
// Example usage:
//
//	import "github.com/wirecho/wirecho/echo"
//
//	srv := echo.New(&echo.Config{Addr: ":8080", Workers: 4})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(ctx)
type Server interface {
	// Start binds the listen endpoint and begins accepting connections.
	//
	// A bind failure is fatal: Start returns the setup error and no
	// connection is ever accepted. Once Start has returned nil the accept
	// loop runs until Stop is called.
	Start(ctx context.Context) error

	// Stop closes the listener, closes every live session and releases the
	// worker pool. It is safe to call Stop more than once.
	Stop(ctx context.Context) error

	// Addr returns the actual bound address. Useful when the configured
	// address uses port 0.
	Addr() net.Addr
}

// Session represents one accepted connection from handshake to teardown.
//
// Sessions are created by the server's accept loop and are visible to user
// code only through the OnConnect/OnDisconnect callbacks.
type Session interface {
	// ID returns a unique identifier for the session, generated when the
	// connection is accepted and constant for its lifetime.
	ID() string

	// RemoteAddr returns the peer's network address, typically "IP:port".
	RemoteAddr() string

	// Context returns the session's lifecycle context. It is cancelled when
	// the session closes, whether by a clean peer shutdown, a transport
	// error or a server stop.
	Context() context.Context

	// Close tears the session down. Safe to call multiple times; after the
	// first call no further read or write is issued on the connection.
	Close() error
}
