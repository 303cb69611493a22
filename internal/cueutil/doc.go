// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE parsing steps shared by the configuration
// loader and the seed loader.
//
// Configuration files are unified with an embedded schema before decoding:
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[Config](schema, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
//
// Seed files have no schema; Compile only checks that every value is concrete
// and returns the compiled value for field-order-preserving traversal.
package cueutil
