// SPDX-License-Identifier: MPL-2.0

package seed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"remotectl/internal/cueutil"
	"remotectl/pkg/store"
)

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

var (
	// ErrNotMapping is returned when the top level of a seed file is not a mapping.
	ErrNotMapping = errors.New("seed top level is not a mapping")
	// ErrUnsupportedFormat is the sentinel error wrapped by UnsupportedFormatError.
	ErrUnsupportedFormat = errors.New("unsupported seed format")
	// ErrEmptyKey is returned for a top-level entry whose key is "". Remote
	// clients cannot address such a key.
	ErrEmptyKey = errors.New("seed key is empty")
)

type (
	// Format is a seed file syntax.
	Format string

	// UnsupportedFormatError is returned for an unknown file extension or Format.
	UnsupportedFormatError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported seed format %q (valid: .toml, .yaml, .yml, .json, .cue)", e.Value)
}

// Unwrap returns ErrUnsupportedFormat for errors.Is() compatibility.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// Validate returns nil for a supported Format.
func (f Format) Validate() error {
	switch f {
	case FormatTOML, FormatYAML, FormatJSON, FormatCUE:
		return nil
	default:
		return &UnsupportedFormatError{Value: string(f)}
	}
}

// FormatOf selects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &UnsupportedFormatError{Value: ext}
	}
}

// Default is the object set used when no seed file is configured.
func Default() []store.Entry {
	return []store.Entry{{Key: "learning_rate", Value: store.Number(0.1)}}
}

// Load reads the seed file at path.
func Load(path string) ([]store.Entry, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	entries, err := Parse(data, format, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes data in the given format. name labels CUE diagnostics.
func Parse(data []byte, format Format, name string) ([]store.Entry, error) {
	switch format {
	case FormatTOML:
		return parseTOML(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatJSON:
		return parseJSON(data)
	case FormatCUE:
		return parseCUE(data, name)
	default:
		return nil, format.Validate()
	}
}

func parseTOML(data []byte) ([]store.Entry, error) {
	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}

	keys := tomlKeyOrder(data)
	if len(keys) != len(table) {
		// Unreachable for documents Unmarshal accepted; fall back to sorted keys.
		keys = keys[:0]
		for k := range table {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	}
	return collect(keys, func(k string) (any, error) { return table[k], nil })
}

// tomlKeyOrder lists the top-level keys of a TOML document in the order they
// first appear: bare key-values before the first table header, then the
// first segment of each table header.
func tomlKeyOrder(data []byte) []string {
	var p unstable.Parser
	p.Reset(data)

	var keys []string
	seen := make(map[string]bool)
	inTable := false
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			inTable = true
		case unstable.KeyValue:
			if inTable {
				continue
			}
		default:
			continue
		}

		it := expr.Key()
		if !it.Next() {
			continue
		}
		if k := string(it.Node().Data); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func parseYAML(data []byte) ([]store.Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		// empty document
		return nil, nil
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	entries := make([]store.Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, node := root.Content[i], root.Content[i+1]
		if key.Value == "" {
			return nil, ErrEmptyKey
		}
		var raw any
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode yaml key %q: %w", key.Value, err)
		}
		v, err := store.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key.Value, err)
		}
		entries = append(entries, store.Entry{Key: key.Value, Value: v})
	}
	return entries, nil
}

func parseJSON(data []byte) ([]store.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotMapping
	}

	var entries []store.Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		key, _ := tok.(string)
		if key == "" {
			return nil, ErrEmptyKey
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json key %q: %w", key, err)
		}
		v, err := store.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		entries = append(entries, store.Entry{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return entries, nil
}

func parseCUE(data []byte, name string) ([]store.Entry, error) {
	root, err := cueutil.Compile(data, cueutil.WithFilename(name))
	if err != nil {
		return nil, err
	}
	if root.IncompleteKind() != cue.StructKind {
		return nil, ErrNotMapping
	}

	fields, err := root.Fields()
	if err != nil {
		return nil, cueutil.FormatError(err, name)
	}

	var entries []store.Entry
	for fields.Next() {
		key := fields.Selector().Unquoted()
		if key == "" {
			return nil, ErrEmptyKey
		}
		// Round-trip through JSON so numbers keep CUE's int/float distinction
		// without depending on Decode's interface{} mapping.
		data, err := fields.Value().MarshalJSON()
		if err != nil {
			return nil, cueutil.FormatError(err, name)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		v, err := store.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		entries = append(entries, store.Entry{Key: key, Value: v})
	}
	return entries, nil
}

func collect(keys []string, lookup func(string) (any, error)) ([]store.Entry, error) {
	entries := make([]store.Entry, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			return nil, ErrEmptyKey
		}
		raw, err := lookup(k)
		if err != nil {
			return nil, err
		}
		v, err := store.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		entries = append(entries, store.Entry{Key: k, Value: v})
	}
	return entries, nil
}
