package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wirecho/wirecho/internal/dispatch"
)

// flakyListener fails its first Accept with a transient error, then
// delegates to the wrapped listener.
type flakyListener struct {
	net.Listener
	mu     sync.Mutex
	failed bool
}

func (f *flakyListener) Accept() (net.Conn, error) {
	f.mu.Lock()
	if !f.failed {
		f.failed = true
		f.mu.Unlock()
		return nil, errors.New("accept: too many open files")
	}
	f.mu.Unlock()
	return f.Listener.Accept()
}

// TestBindFailureReturnsSetupError tests that binding an occupied endpoint
// fails with a SetupError carrying the listen label
func TestBindFailureReturnsSetupError(t *testing.T) {
	t.Parallel()

	holder, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to occupy a port: %v", err)
	}
	defer holder.Close()

	pool := dispatch.New(1)
	defer pool.Close()

	l := NewListener(holder.Addr().String(), pool, &recordingReporter{}, func(net.Conn) {})

	bindErr := l.Bind()
	if bindErr == nil {
		t.Fatal("Bind() on an occupied endpoint succeeded")
	}

	var setup *SetupError
	if !errors.As(bindErr, &setup) {
		t.Fatalf("Bind() error = %T, want *SetupError", bindErr)
	}
	if setup.Op != OpListen {
		t.Errorf("SetupError.Op = %q, want %q", setup.Op, OpListen)
	}
	if setup.Unwrap() == nil {
		t.Error("SetupError carries no underlying transport error")
	}
}

// TestBindInvalidAddress tests that a malformed address fails to bind
func TestBindInvalidAddress(t *testing.T) {
	t.Parallel()

	pool := dispatch.New(1)
	defer pool.Close()

	l := NewListener("not-an-endpoint", pool, &recordingReporter{}, func(net.Conn) {})
	if l.Bind() == nil {
		t.Error("Bind() on a malformed address succeeded")
	}
}

// TestAcceptSpawnsSessionPerConnection tests that every accepted connection
// produces exactly one spawn and the loop keeps accepting
func TestAcceptSpawnsSessionPerConnection(t *testing.T) {
	t.Parallel()

	pool := dispatch.New(1)
	defer pool.Close()

	spawned := make(chan net.Conn, 4)
	l := NewListener("127.0.0.1:0", pool, &recordingReporter{}, func(c net.Conn) {
		spawned <- c
	})

	if err := l.Bind(); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	go l.Run(context.Background())

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			t.Fatalf("dial %d failed: %v", i, err)
		}

		select {
		case accepted := <-spawned:
			accepted.Close()
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d never reached spawn", i)
		}
		conn.Close()
	}
}

// TestAcceptErrorContinues tests that an accept failure is reported with
// the accept label and the loop still serves the next connection
func TestAcceptErrorContinues(t *testing.T) {
	t.Parallel()

	pool := dispatch.New(1)
	defer pool.Close()

	reporter := &recordingReporter{}
	spawned := make(chan net.Conn, 1)
	l := NewListener("127.0.0.1:0", pool, reporter, func(c net.Conn) {
		spawned <- c
	})

	if err := l.Bind(); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	// First accept fails, every later one reaches the real socket.
	l.ln = &flakyListener{Listener: l.ln}

	go l.Run(context.Background())

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case accepted := <-spawned:
		accepted.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped accepting after a failed accept")
	}

	ops := reporter.Ops()
	if len(ops) != 1 || ops[0] != OpAccept {
		t.Errorf("reported ops = %v, want [%s]", ops, OpAccept)
	}
}

// TestCloseStopsRun tests that closing the listener ends the accept loop
func TestCloseStopsRun(t *testing.T) {
	t.Parallel()

	pool := dispatch.New(1)
	defer pool.Close()

	l := NewListener("127.0.0.1:0", pool, &recordingReporter{}, func(net.Conn) {})
	if err := l.Bind(); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		l.Run(context.Background())
		close(done)
	}()

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

// TestAddrBeforeBind tests that an unbound listener has no address
func TestAddrBeforeBind(t *testing.T) {
	t.Parallel()

	pool := dispatch.New(1)
	defer pool.Close()

	l := NewListener("127.0.0.1:0", pool, &recordingReporter{}, func(net.Conn) {})
	if l.Addr() != nil {
		t.Error("Addr() before Bind should be nil")
	}
}
