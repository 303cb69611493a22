// SPDX-License-Identifier: MPL-2.0

// Package service dispatches remote operations onto a shared store and an
// optional pause controller.
//
// The Service is transport-agnostic: the TCP runtime and the SSH console both
// hand it decoded protocol requests and forward its responses.
package service
