// SPDX-License-Identifier: MPL-2.0

// Package hostloop runs the checkpoint-gated work loop of a serving process.
package hostloop

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

type (
	// Checkpointer is the host side of a pause controller.
	Checkpointer interface {
		CheckpointContext(ctx context.Context) (time.Duration, error)
	}

	// Clock supplies the step timer. Nil uses the wall clock.
	Clock interface {
		After(d time.Duration) <-chan time.Time
	}

	// Loop repeats Work, waiting Step after each iteration and then honoring
	// any pending pause.
	Loop struct {
		// Iterations is the number of iterations to run; 0 runs until ctx ends.
		Iterations int
		// Step is the delay after each iteration.
		Step time.Duration
		// Controller gates each iteration. Nil disables pausing.
		Controller Checkpointer
		// Logger receives one line per iteration. Nil discards.
		Logger *log.Logger
		// Work runs once per iteration. Nil does nothing.
		Work func(ctx context.Context, iteration int) error
		// Clock times the step delay.
		Clock Clock
	}
)

// Run executes the loop. It returns nil after the last iteration, the error
// of a failing Work call unchanged, or ctx.Err() when cancelled.
func (l *Loop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	for i := 1; l.Iterations == 0 || i <= l.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Info(fmt.Sprintf("iteration %d", i))
		if l.Work != nil {
			if err := l.Work(ctx, i); err != nil {
				return err
			}
		}

		if err := l.sleep(ctx); err != nil {
			return err
		}

		if l.Controller != nil {
			if _, err := l.Controller.CheckpointContext(ctx); err != nil {
				return ctx.Err()
			}
		}
	}

	logger.Info("done", "iterations", l.Iterations)
	return nil
}

func (l *Loop) sleep(ctx context.Context) error {
	if l.Step <= 0 {
		return nil
	}

	var fired <-chan time.Time
	if l.Clock != nil {
		fired = l.Clock.After(l.Step)
	} else {
		t := time.NewTimer(l.Step)
		defer t.Stop()
		fired = t.C
	}

	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
