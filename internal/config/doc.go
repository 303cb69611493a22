// SPDX-License-Identifier: MPL-2.0

// Package config loads remotectl configuration using Viper with CUE as the file format.
//
// A config file is looked up in this order: the explicit --config path, then
// config.cue in the user config directory ($XDG_CONFIG_HOME/remotectl on Linux,
// ~/Library/Application Support/remotectl on macOS, %APPDATA%\remotectl on
// Windows), then ./config.cue. Without a file the built-in defaults apply.
// Environment variables prefixed with REMOTECTL_ override both, with dots in
// key names replaced by underscores (REMOTECTL_SERVER_PORT=9000).
//
// Files are validated against the embedded #Config schema (config_schema.cue)
// before they are merged, so unknown fields and out-of-range values fail early
// with the offending field path.
package config
