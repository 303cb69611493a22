// SPDX-License-Identifier: MPL-2.0

// Package store provides the shared in-process key-value mapping that a host
// exposes to remote clients.
//
// A Store maps string keys to Values. Values are a tagged variant (null, bool,
// number, string, bytes, list, map) so every stored value has a well-defined
// wire encoding. Keys keep their insertion order; Keys, Values and Items return
// snapshots in that order rather than live views.
//
// All Store methods are safe for concurrent use. Each method holds the store
// lock for exactly one operation: there is no multi-key atomicity, and the
// last Set to complete wins.
package store
