package server

import (
	"context"
	"errors"
	"net"

	"github.com/wirecho/wirecho/internal/dispatch"
)

// spawnFn constructs and starts a session over an accepted connection.
type spawnFn func(conn net.Conn)

// Listener owns the bound socket and the accept loop. Exactly one accept is
// outstanding at any time; each completion is executed on the dispatch pool
// and the next accept is issued immediately after, regardless of whether the
// completed one failed or what became of the session it spawned.
type Listener struct {
	addr     string
	ln       net.Listener
	pool     *dispatch.Pool
	reporter Reporter
	spawn    spawnFn
}

// NewListener creates an unbound listener for the given endpoint.
func NewListener(addr string, pool *dispatch.Pool, reporter Reporter, spawn spawnFn) *Listener {
	return &Listener{
		addr:     addr,
		pool:     pool,
		reporter: reporter,
		spawn:    spawn,
	}
}

// Bind opens, binds and sets the socket listening. The stdlib listener
// enables address reuse on Unix platforms, covering the configure step. A
// failure is wrapped in *SetupError and is fatal: the listener must not be
// run after a failed Bind.
func (l *Listener) Bind() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return &SetupError{Op: OpListen, Err: err}
	}

	l.ln = ln
	return nil
}

// Addr returns the actual bound address.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Run accepts connections until the listener is closed or ctx is cancelled.
// An accept error is reported and the loop continues; a single failed
// attempt never stops the listener.
func (l *Listener) Run(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil && errors.Is(err, net.ErrClosed) {
			return
		}

		if rerr := l.pool.Run(ctx, func() { l.onAccept(conn, err) }); rerr != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

func (l *Listener) onAccept(conn net.Conn, err error) {
	if err != nil {
		l.reporter.Failure(OpAccept, err)
		return
	}
	l.spawn(conn)
}

// Close closes the bound socket, ending Run.
func (l *Listener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
