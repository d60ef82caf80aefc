package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wirecho/wirecho"
	"github.com/wirecho/wirecho/internal/dispatch"
	"github.com/wirecho/wirecho/internal/wire"
)

// State enumerates the session lifecycle. Closed is reachable from every
// other state; no operation is issued from Closed.
type State uint32

const (
	StateHandshaking State = iota
	StateReading
	StateEchoing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReading:
		return "reading"
	case StateEchoing:
		return "echoing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// WebSocket close status sent when a session exceeds its rate limit.
const statusPolicyViolation = 1008

// transport is the protocol-layer surface a session drives. wire.Conn is the
// production implementation; tests substitute fakes to exercise the state
// machine without a socket.
type transport interface {
	Handshake() error
	ReadMessage() ([]byte, bool, error)
	WriteMessage(payload []byte, text bool) error
	CloseStatus(code int, reason string) error
	Close() error
}

// Session owns one accepted connection from handshake through teardown.
//
// All I/O is issued from the session's own lane goroutine; every completion
// callback runs on the dispatch pool, and the lane submits the next callback
// only after the previous one finished. That makes the handshake -> read ->
// echo -> read cycle strictly sequential: at most one read and one write are
// outstanding at any instant and echoes leave in arrival order.
type Session struct {
	id         string
	tr         transport
	remoteAddr string

	pool     *dispatch.Pool
	reporter Reporter
	limiter  *rate.Limiter

	state atomic.Uint32

	// buf holds the most recently read message until it has been echoed,
	// together with its frame type. Only the session's own callbacks touch
	// these.
	buf  []byte
	text bool

	// voluntary records whether the session ended with an expected peer
	// closure rather than an error or a server-side close.
	voluntary bool

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	onConnect OnConnectFn
	onClose   func(*Session)
}

func newSession(tr transport, remoteAddr string, pool *dispatch.Pool, reporter Reporter, limiter *rate.Limiter, onConnect OnConnectFn, onClose func(*Session)) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		id:         uuid.New().String(),
		tr:         tr,
		remoteAddr: remoteAddr,
		pool:       pool,
		reporter:   reporter,
		limiter:    limiter,
		ctx:        ctx,
		cancel:     cancel,
		onConnect:  onConnect,
		onClose:    onClose,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer's network address.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// Context returns the session's lifecycle context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(uint32(st))
}

// transition advances the state machine from an expected prior state. The
// swap fails only when Closed landed in between, which keeps Closed
// terminal: a session observed as closed never resumes reading or echoing.
func (s *Session) transition(from, to State) {
	s.state.CompareAndSwap(uint32(from), uint32(to))
}

// Start launches the session's lane goroutine, beginning with the handshake.
func (s *Session) Start() {
	go s.run()
}

// Close tears the session down: it cancels the lifecycle context and closes
// the connection, unblocking any in-flight read or write. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.setState(StateClosed)
		s.cancel()
		_ = s.tr.Close()
	})
	return nil
}

// run is the session's lane: it issues one blocking I/O step at a time and
// hands the outcome to the dispatch pool. The next step is only issued once
// the previous completion callback has run, so state transitions can never
// skip or reorder.
func (s *Session) run() {
	defer s.teardown()

	err := s.tr.Handshake()
	if s.complete(func() { s.onHandshake(err) }) != nil {
		return
	}

	for {
		switch s.State() {
		case StateReading:
			payload, text, rerr := s.tr.ReadMessage()
			if s.complete(func() { s.onRead(payload, text, rerr) }) != nil {
				return
			}
		case StateEchoing:
			werr := s.tr.WriteMessage(s.buf, s.text)
			if s.complete(func() { s.onEcho(werr) }) != nil {
				return
			}
		default:
			return
		}
	}
}

// complete runs fn on the dispatch pool and waits for it. A pool shutdown or
// context cancellation ends the session.
func (s *Session) complete(fn func()) error {
	if err := s.pool.Run(s.ctx, fn); err != nil {
		s.setState(StateClosed)
		return err
	}
	return nil
}

func (s *Session) teardown() {
	_ = s.Close()
	if s.onClose != nil {
		s.onClose(s)
	}
}

func (s *Session) onHandshake(err error) {
	if err != nil {
		if !wire.IsExpectedClose(err) {
			s.reporter.Failure(OpHandshake, err)
		}
		s.setState(StateClosed)
		return
	}

	if s.onConnect != nil {
		s.onConnect(s)
	}
	s.transition(StateHandshaking, StateReading)
}

func (s *Session) onRead(payload []byte, text bool, err error) {
	if err != nil {
		if wire.IsExpectedClose(err) {
			s.voluntary = true
		} else {
			s.reporter.Failure(OpRead, err)
		}
		s.setState(StateClosed)
		return
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.reporter.Failure(OpRateLimit, errors.New(wirecho.ErrRateLimitExceeded))
		_ = s.tr.CloseStatus(statusPolicyViolation, wirecho.ErrRateLimitExceeded)
		s.setState(StateClosed)
		return
	}

	s.buf = payload
	s.text = text
	s.transition(StateReading, StateEchoing)
}

func (s *Session) onEcho(err error) {
	if err != nil {
		// A write unblocked by our own Close is part of shutdown, not a
		// reportable failure.
		if !wire.IsExpectedClose(err) {
			s.reporter.Failure(OpWrite, err)
		}
		s.setState(StateClosed)
		return
	}

	s.buf = nil
	s.transition(StateEchoing, StateReading)
}
