// SPDX-License-Identifier: MPL-2.0

package store

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Entry is one key-value pair, used for initial contents and snapshots.
type Entry struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// Store is an insertion-ordered, concurrency-safe mapping from string keys
// to Values. There is no delete: once set, a key stays for the lifetime of
// the Store.
type Store struct {
	mu      sync.RWMutex
	index   map[string]int // key -> position in entries
	entries []Entry
}

// New creates a Store holding the given entries in order. A key repeated
// later in entries overwrites the earlier value but keeps its first position.
func New(entries ...Entry) *Store {
	s := &Store{
		index:   make(map[string]int, len(entries)),
		entries: make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		s.setLocked(e.Key, e.Value)
	}
	return s
}

// FromMap creates a Store from plain Go data. Go maps carry no order, so the
// keys are inserted in sorted order to keep snapshots deterministic.
func FromMap(m map[string]any) (*Store, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}
	return New(entries...), nil
}

// Get returns the value stored under key, or a *KeyNotFoundError.
func (s *Store) Get(key string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[key]
	if !ok {
		return Value{}, &KeyNotFoundError{Key: key}
	}
	return s.entries[i].Value, nil
}

// Set inserts or overwrites key. Overwriting keeps the key's position.
func (s *Store) Set(key string, v Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, v)
}

// setLocked must be called with s.mu held for writing.
func (s *Store) setLocked(key string, v Value) {
	if i, ok := s.index[key]; ok {
		s.entries[i].Value = v
		return
	}
	s.index[key] = len(s.entries)
	s.entries = append(s.entries, Entry{Key: key, Value: v})
}

// Has reports whether key has been set.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Len returns the number of distinct keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns a snapshot of the keys in insertion order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Values returns a snapshot of the values in key order.
func (s *Store) Values() []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]Value, len(s.entries))
	for i, e := range s.entries {
		values[i] = e.Value
	}
	return values
}

// Items returns a snapshot of all entries in key order.
func (s *Store) Items() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}
