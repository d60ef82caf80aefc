// Package dispatch implements the execution substrate shared by the listener
// and every session: a fixed set of workers pulling ready completion
// callbacks from one queue.
//
// The pool is not protocol-aware. Callers issue their blocking I/O on their
// own goroutine and submit only the completion callback here, so a worker is
// either running a short callback to completion or idle waiting for one; it
// never blocks on network I/O. Per-caller serialization is by construction:
// Run returns only after the callback has finished, so a caller that submits
// its next callback only after Run returns can never have two callbacks in
// flight at once.
package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Run after Close has been called.
var ErrPoolClosed = errors.New("dispatch: pool closed")

type task struct {
	fn   func()
	done chan struct{}
}

// Pool is a fixed-size worker pool executing submitted callbacks.
type Pool struct {
	tasks chan task
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// New creates a pool with the given number of workers and starts them.
// A count below 1 is clamped to 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		tasks: make(chan task),
		quit:  make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Run submits fn and blocks until a worker has executed it.
//
// Run returns ctx.Err() if the context is cancelled before a worker picks
// the callback up, and ErrPoolClosed once the pool is shutting down. During
// shutdown a callback that was already picked up may still run even though
// Run reports ErrPoolClosed.
func (p *Pool) Run(ctx context.Context, fn func()) error {
	t := task{fn: fn, done: make(chan struct{})}

	select {
	case p.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrPoolClosed
	}

	select {
	case <-t.done:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	}
}

// Close stops the workers. Callbacks already executing run to completion;
// queued submissions fail with ErrPoolClosed. Safe to call multiple times.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case t := <-p.tasks:
			t.fn()
			close(t.done)
		case <-p.quit:
			return
		}
	}
}
