// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the remotectl CLI: 'serve' runs a host that exposes
// its shared values over TCP, and the client commands (get, set, pause, ...)
// operate on a running host.
package cmd
