// SPDX-License-Identifier: MPL-2.0

// Package serverbase provides the lifecycle shared by every listener a
// remotectl host runs: the TCP service runtime and the SSH operator console.
//
// Base owns the state machine (created, starting, running, stopping, stopped,
// failed), goroutine accounting, the set of open connections that must be
// closed on shutdown, and the bind step that turns OS listen failures into
// *BindError values.
package serverbase
