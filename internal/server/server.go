// Package server implements the connection lifecycle engine behind the
// public echo facade: the listener's accept loop, the per-connection session
// state machine and the composition that ties them to the dispatch pool.
package server

import (
	"context"
	"errors"
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wirecho/wirecho"
	"github.com/wirecho/wirecho/internal/dispatch"
	"github.com/wirecho/wirecho/internal/wire"
)

// Server implements the wirecho.Server interface.
type Server struct {
	cfg      Config
	pool     *dispatch.Pool
	listener *Listener
	sessions sync.Map // map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

// New creates a server from the given configuration. Nothing is bound until
// Start.
func New(cfg *Config) *Server {
	return &Server{cfg: cfg.normalize()}
}

// Start binds the listen endpoint and launches the accept loop. A bind
// failure is returned as a *SetupError without accepting anything.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New(wirecho.ErrServerAlreadyRunning)
	}

	// Everything is assembled and bound under the lock, and running is set
	// only afterwards, so a concurrent Stop either sees a stopped server or
	// a fully initialized one.
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.pool = dispatch.New(s.cfg.Workers)
	s.listener = NewListener(s.cfg.Addr, s.pool, s.cfg.Reporter, s.spawn)

	if err := s.listener.Bind(); err != nil {
		s.pool.Close()
		s.cancel()
		s.listener = nil
		return err
	}

	s.running = true
	go s.listener.Run(s.ctx)
	return nil
}

// Stop closes the listener, tears down every live session and releases the
// worker pool. Safe to call when the server is not running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	err := s.listener.Close()
	s.cancel()

	s.sessions.Range(func(key, value interface{}) bool {
		if sess, ok := value.(*Session); ok {
			_ = sess.Close()
		}
		return true
	})

	s.pool.Close()
	return err
}

// Addr returns the actual bound address, or nil before a successful Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SessionCount returns the number of currently live sessions.
func (s *Server) SessionCount() int {
	n := 0
	s.sessions.Range(func(key, value interface{}) bool {
		n++
		return true
	})
	return n
}

// spawn wraps an accepted connection into a session and starts it. Called
// from the listener's accept completion; the listener resumes accepting
// regardless of what becomes of the session.
func (s *Server) spawn(conn net.Conn) {
	tr := wire.NewConn(conn, &wire.Options{
		ServerName:       s.cfg.ServerName,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		IdleTimeout:      s.cfg.IdleTimeout,
		WriteTimeout:     s.cfg.WriteTimeout,
	})

	var limiter *rate.Limiter
	if rl := s.cfg.RateLimit; rl != nil && rl.Enabled {
		limiter = rate.NewLimiter(rl.MessagesPerSecond, rl.Burst)
	}

	sess := newSession(tr, conn.RemoteAddr().String(), s.pool, s.cfg.Reporter, limiter, s.cfg.OnConnect, s.release)
	s.sessions.Store(sess.ID(), sess)
	sess.Start()
}

// release is each session's onClose hook: it drops the registry entry and
// fires the user disconnect callback exactly once, when the session's lane
// has exited and no further operation will be issued.
func (s *Server) release(sess *Session) {
	s.sessions.Delete(sess.ID())
	if s.cfg.OnDisconnect != nil {
		s.cfg.OnDisconnect(sess, sess.voluntary)
	}
}
