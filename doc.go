// Package wirecho provides a concurrent WebSocket echo server built on a raw
// TCP accept loop.
//
// The server accepts TCP connections, upgrades each one to a WebSocket
// session with a single handshake, and echoes every application message back
// to its sender byte-for-byte until the peer closes the connection or a
// transport error occurs. Text messages are echoed as text and binary
// messages as binary.
//
// # Architecture
//
// Three pieces compose the engine:
//
//   - Listener: owns the bound socket and keeps exactly one accept
//     outstanding at a time. A failed accept is logged and the loop
//     continues; a successful accept spawns a Session and the loop
//     continues regardless of that session's fate.
//   - Session: owns one connection end to end. An explicit state machine
//     (Handshaking -> Reading -> Echoing -> Closed) drives the upgrade and
//     the read/echo loop. The cycle is strictly sequential per session, so
//     echoes always arrive in send order and at most one read and one write
//     are ever outstanding per connection.
//   - Dispatch pool: a fixed set of workers executing completion callbacks
//     from a shared queue. Blocking I/O never holds a worker; only the
//     short completion callbacks do, so one slow connection cannot starve
//     others even with a single worker.
//
// # Quick Start
//
//	import (
//	    "github.com/wirecho/wirecho/echo"
//	)
//
//	srv := echo.New(&echo.Config{
//	    Addr:       ":8080",
//	    Workers:    4,
//	    ServerName: "wirecho/1.0",
//	})
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err) // bind failure, nothing was accepted
//	}
//	defer srv.Stop(ctx)
//
// # Error Handling
//
// Errors never cross component boundaries. A bind failure aborts startup, an
// accept failure is logged and the listener keeps accepting, a handshake or
// read/write failure terminates only the affected session. A clean peer
// close (close frame with a normal or going-away status, or a bare EOF) is
// expected and produces no log line at all. Nothing is retried anywhere; a
// client that wants service restored reconnects.
//
// # Timeouts
//
//   - Handshake: 10s
//   - Idle read: 60s
//   - Write: 10s
//
// # Rate Limiting
//
// Optional per-session token bucket rate limiting is available through
// Config.RateLimit. It is disabled by default; when a session exceeds the
// configured rate it is closed with status 1008 (policy violation).
package wirecho
