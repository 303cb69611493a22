// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the remotectl CLI.
//
// An ActionableError states what failed, on which resource, and what the user
// can try. Well-known failure classes also carry an issue Id whose Markdown
// guide is rendered with glamour.
package issue
