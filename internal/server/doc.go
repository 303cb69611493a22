// SPDX-License-Identifier: MPL-2.0

// Package server runs the TCP endpoint that exposes a service to remote
// clients.
//
// Start binds synchronously, so an address that is invalid or already in use
// is reported to the caller as a *BindError before any goroutine exists. Once
// bound, an accept loop runs in the background and every client connection is
// served on its own goroutine, one request at a time and in order.
package server
