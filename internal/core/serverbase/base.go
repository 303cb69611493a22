// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// ErrShutdownTimeout is returned by Shutdown when tracked goroutines are
// still running after the timeout.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Base is embedded by listeners to share lifecycle handling.
//
// A Base is single-use: once stopped or failed, create a new instance.
type Base struct {
	// atomic for lock-free reads from accept loops
	state atomic.Int32

	// mu guards lastErr and conns.
	mu      sync.Mutex
	lastErr error
	conns   map[io.Closer]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedCh chan struct{}
	doneCh    chan struct{}
	doneOnce  sync.Once
	errCh     chan error

	logger *log.Logger
}

// NewBase creates a Base in the Created state.
func NewBase(opts ...Option) *Base {
	b := &Base{
		conns:     make(map[io.Closer]struct{}),
		startedCh: make(chan struct{}),
		doneCh:    make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	b.state.Store(int32(StateCreated))

	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "server"})
	}
	return b
}

// State returns the current state.
func (b *Base) State() State { return State(b.state.Load()) }

// IsRunning reports whether the state is Running.
func (b *Base) IsRunning() bool { return b.State() == StateRunning }

// Logger returns the lifecycle logger.
func (b *Base) Logger() *log.Logger { return b.logger }

// Err returns a channel delivering asynchronous failures, such as an accept
// loop dying while running.
func (b *Base) Err() <-chan error { return b.errCh }

// LastError returns the error that caused the Failed state, or nil.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Done is closed once the listener reaches a terminal state.
func (b *Base) Done() <-chan struct{} { return b.doneCh }

// StartedChannel is closed when the listener becomes Running.
func (b *Base) StartedChannel() <-chan struct{} { return b.startedCh }

// Context is cancelled when Stop begins. It is nil before Start.
func (b *Base) Context() context.Context { return b.ctx }

// TransitionToStarting moves Created to Starting. It fails if Start was already
// called or if ctx is already cancelled, in which case the Base ends Failed.
func (b *Base) TransitionToStarting(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("context cancelled before start: %w", err)
		b.TransitionToFailed(err)
		return err
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", b.State())
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	return nil
}

// TransitionToRunning moves Starting to Running and releases WaitForReady.
func (b *Base) TransitionToRunning() {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(b.startedCh)
	}
}

// TransitionToFailed records err and moves to Failed. The error is also
// offered on Err without blocking.
func (b *Base) TransitionToFailed(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	b.state.Store(int32(StateFailed))
	if b.cancel != nil {
		b.cancel()
	}
	b.SendError(err)
	b.markDone()
}

// TransitionToStopping moves Starting or Running to Stopping and cancels the
// context. It returns false when there is nothing to shut down: the Base was
// never started (it becomes Stopped), or it is already stopping or terminal.
func (b *Base) TransitionToStopping() bool {
	for {
		current := b.State()
		switch current {
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				b.markDone()
				return false
			}
		case StateStarting, StateRunning:
			if b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				if b.cancel != nil {
					b.cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

// TransitionToStopped marks the Base stopped. Call it after every tracked
// goroutine has exited.
func (b *Base) TransitionToStopped() {
	b.state.Store(int32(StateStopped))
	b.markDone()
}

func (b *Base) markDone() {
	b.doneOnce.Do(func() { close(b.doneCh) })
}

// WaitForReady blocks until the Base is Running or ctx ends.
func (b *Base) WaitForReady(ctx context.Context) error {
	select {
	case <-b.startedCh:
		return nil
	case <-b.doneCh:
		if err := b.LastError(); err != nil {
			return err
		}
		return fmt.Errorf("server %s before becoming ready", b.State())
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Go runs fn on a tracked goroutine with the lifecycle context.
func (b *Base) Go(fn func(ctx context.Context)) {
	ctx := b.ctx
	b.wg.Go(func() { fn(ctx) })
}

// SendError offers err on the error channel; it is dropped if the channel is full.
func (b *Base) SendError(err error) {
	select {
	case b.errCh <- err:
	default:
	}
}

// Track registers an open connection so Shutdown closes it. It returns false
// when the Base is no longer running; the caller must then close c itself.
func (b *Base) Track(c io.Closer) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.IsRunning() {
		return false
	}
	b.conns[c] = struct{}{}
	return true
}

// Untrack forgets a connection that closed on its own.
func (b *Base) Untrack(c io.Closer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, c)
}

// Tracked returns the number of open connections.
func (b *Base) Tracked() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *Base) closeTracked() {
	b.mu.Lock()
	conns := make([]io.Closer, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	clear(b.conns)
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Shutdown runs the stop sequence: Stopping, closeListener, close tracked
// connections, wait up to timeout for goroutines, Stopped. It is idempotent and
// safe before Start. A zero timeout waits indefinitely.
func (b *Base) Shutdown(closeListener func() error, timeout time.Duration) error {
	if !b.TransitionToStopping() {
		return nil
	}

	var errs []error
	if closeListener != nil {
		if err := closeListener(); err != nil && !IsClosedConnError(err) {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		}
	}
	b.closeTracked()

	waited := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(waited)
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-waited:
	case <-timer:
		errs = append(errs, fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout))
	}

	b.TransitionToStopped()
	return errors.Join(errs...)
}
