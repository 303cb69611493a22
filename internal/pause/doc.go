// SPDX-License-Identifier: MPL-2.0

// Package pause implements the cooperative pause/resume control for a host
// process's long-running loop.
//
// A Controller is either running or paused. Pause and Resume may be called
// from any goroutine (typically a remote-serving one) and are idempotent.
// The host loop calls Checkpoint between units of work: while the controller
// is paused, Checkpoint blocks the host goroutine until Resume is called.
package pause
