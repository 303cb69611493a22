// SPDX-License-Identifier: MPL-2.0

// Package seed loads the initial object set of a host from a file.
//
// The top level of the file must be a mapping; each of its keys becomes a
// store entry. Entry order follows the document for YAML, JSON and CUE. TOML
// decodes into an unordered table, so its keys are sorted.
package seed
