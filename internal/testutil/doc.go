// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by remotectl tests: resource
// cleanup (MustClose, MustStop, DeferClose, DeferStop), port reservation
// (FreePort) and a manually driven clock (FakeClock).
package testutil
