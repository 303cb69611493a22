// SPDX-License-Identifier: MPL-2.0

// Package protocol defines the request/response messages exchanged between a
// remotectl client and a host, and a line codec for them.
//
// Each message is one JSON object terminated by a newline. A client sends a
// Request and reads exactly one Response carrying the same ID before sending
// the next one, so a connection never has more than one call in flight.
package protocol
