// Package wire adapts the external WebSocket protocol layer (gobwas/ws) to
// the narrow surface the session engine needs: one server-side handshake
// over a raw net.Conn, whole-message reads and writes that preserve the
// text/binary frame type, and classification of expected peer closure.
package wire

import (
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Default deadlines applied around each operation. These are the suggested
// server-role settings: a peer that stalls a handshake, goes idle past the
// read window or cannot drain a write gets its connection dropped.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// Options configures a Conn.
type Options struct {
	// ServerName, when non-empty, is attached to the handshake response as
	// the Server header.
	ServerName string

	HandshakeTimeout time.Duration
	IdleTimeout      time.Duration
	WriteTimeout     time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = DefaultIdleTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = DefaultWriteTimeout
	}
	return out
}

// Conn is a WebSocket endpoint over an accepted TCP connection. It is not
// safe for concurrent reads or concurrent writes; the session engine issues
// at most one operation per direction at a time.
type Conn struct {
	raw      net.Conn
	opts     Options
	upgrader ws.Upgrader
}

// NewConn wraps an accepted connection. No bytes are exchanged until
// Handshake is called.
func NewConn(raw net.Conn, opts *Options) *Conn {
	c := &Conn{
		raw:  raw,
		opts: opts.withDefaults(),
	}

	if c.opts.ServerName != "" {
		c.upgrader.Header = ws.HandshakeHeaderHTTP(http.Header{
			"Server": []string{c.opts.ServerName},
		})
	}

	return c
}

// RemoteAddr returns the peer's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// Handshake performs the server side of the WebSocket upgrade on the raw
// connection. It must be called exactly once, before any read or write.
func (c *Conn) Handshake() error {
	if err := c.raw.SetDeadline(time.Now().Add(c.opts.HandshakeTimeout)); err != nil {
		return err
	}

	if _, err := c.upgrader.Upgrade(c.raw); err != nil {
		return err
	}

	// Handshake done, drop the deadline; reads and writes set their own.
	return c.raw.SetDeadline(time.Time{})
}

// ReadMessage reads one complete application message, reassembling fragments
// and answering control frames along the way. It reports whether the message
// was text-framed. A close frame or EOF surfaces as an error classified by
// IsExpectedClose.
func (c *Conn) ReadMessage() ([]byte, bool, error) {
	if err := c.raw.SetReadDeadline(time.Now().Add(c.opts.IdleTimeout)); err != nil {
		return nil, false, err
	}

	payload, op, err := wsutil.ReadClientData(c.raw)
	if err != nil {
		return nil, false, err
	}

	return payload, op == ws.OpText, nil
}

// WriteMessage writes one complete application message with the given frame
// type.
func (c *Conn) WriteMessage(payload []byte, text bool) error {
	if err := c.raw.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}

	op := ws.OpBinary
	if text {
		op = ws.OpText
	}

	return wsutil.WriteServerMessage(c.raw, op, payload)
}

// CloseStatus sends a close frame with the given status code and reason,
// then closes the underlying connection.
func (c *Conn) CloseStatus(code int, reason string) error {
	deadline := time.Now().Add(c.opts.WriteTimeout)
	if err := c.raw.SetWriteDeadline(deadline); err == nil {
		frame := ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusCode(code), reason))
		_ = ws.WriteFrame(c.raw, frame)
	}
	return c.raw.Close()
}

// Close closes the underlying connection without a close frame.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// IsExpectedClose reports whether err is a graceful peer shutdown: a close
// frame carrying a normal or going-away status, a bare EOF, or a read
// unblocked by our own Close. Everything else is a reportable failure.
func IsExpectedClose(err error) bool {
	if err == nil {
		return false
	}

	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		return ce.Code == ws.StatusNormalClosure || ce.Code == ws.StatusGoingAway
	}

	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
