// SPDX-License-Identifier: MPL-2.0

// Package console serves an SSH endpoint that lets operators drive a running
// host with one-shot commands (ssh -p 2222 host pause) or a line-oriented
// session. Commands go through the same request handler as the TCP runtime.
//
// The console performs no authentication; it binds to loopback by default.
package console
