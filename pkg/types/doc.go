// SPDX-License-Identifier: MPL-2.0

// Package types holds small validated value types shared by the server,
// the console and the client: listen ports, host addresses, service names
// and process exit codes.
package types
