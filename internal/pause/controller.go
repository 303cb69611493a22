// SPDX-License-Identifier: MPL-2.0

package pause

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// StateRunning means Checkpoint returns immediately.
	StateRunning State = iota
	// StatePaused means Checkpoint blocks until Resume.
	StatePaused
)

type (
	// State is the controller's run state.
	State int32

	// Controller coordinates suspending and resuming a host loop.
	// The zero value is not usable; create one with New.
	Controller struct {
		mu     sync.Mutex
		paused bool
		// resumed is closed by Resume to wake every blocked Checkpoint.
		// A fresh channel is installed on each RUNNING -> PAUSED transition.
		resumed chan struct{}
		waiting int

		logger *log.Logger
		now    func() time.Time
	}

	// Option configures a Controller.
	Option func(*Controller)

	// Status is a point-in-time view of the controller.
	Status struct {
		State State
		// Waiting is the number of Checkpoint calls currently blocked.
		Waiting int
	}
)

// String returns "running" or "paused".
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WithLogger sets the logger used for pause/resume notices.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithOutput is shorthand for a prefixed logger writing to w.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) {
		c.logger = log.NewWithOptions(w, log.Options{Prefix: "pause"})
	}
}

// New creates a Controller in the running state.
func New(opts ...Option) *Controller {
	c := &Controller{
		resumed: closedChan(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "pause"})
	}
	return c
}

// Pause moves the controller to PAUSED. Calling it while already paused is a no-op.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return
	}
	c.paused = true
	c.resumed = make(chan struct{})
	c.logger.Debug("pause requested")
}

// Resume moves the controller to RUNNING and wakes blocked checkpoints.
// Calling it while already running is a no-op.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		return
	}
	c.paused = false
	close(c.resumed)
	c.logger.Debug("resume requested")
}

// Paused reports whether the controller is paused.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// State returns the current state.
func (c *Controller) State() State {
	if c.Paused() {
		return StatePaused
	}
	return StateRunning
}

// Status returns the state together with the number of blocked checkpoints.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{State: StateRunning, Waiting: c.waiting}
	if c.paused {
		st.State = StatePaused
	}
	return st
}

// Checkpoint honors a pending pause. It returns immediately while running;
// while paused it blocks until Resume and returns how long it was blocked.
// It never fails.
func (c *Controller) Checkpoint() time.Duration {
	d, _ := c.CheckpointContext(context.Background()) //nolint:errcheck // Background is never cancelled
	return d
}

// CheckpointContext is Checkpoint with an escape hatch for host shutdown:
// if ctx ends while blocked, it returns ctx's error. The controller stays
// paused; cancellation is not a resume.
func (c *Controller) CheckpointContext(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return 0, nil
	}
	wake := c.resumed
	c.waiting++
	c.mu.Unlock()

	start := c.now()
	c.logger.Info("pausing...")

	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()

	select {
	case <-wake:
		waited := c.now().Sub(start)
		c.logger.Info("resuming", "waited", waited.Round(time.Millisecond))
		return waited, nil
	case <-ctx.Done():
		waited := c.now().Sub(start)
		c.logger.Warn("checkpoint abandoned while paused", "waited", waited.Round(time.Millisecond), "error", ctx.Err())
		return waited, fmt.Errorf("checkpoint: %w", ctx.Err())
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
