// SPDX-License-Identifier: MPL-2.0

package store_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"remotectl/pkg/store"
)

func TestStoreGetMissingKey(t *testing.T) {
	t.Parallel()

	s := store.New()
	_, err := s.Get("missing")
	if !errors.Is(err, store.ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}

	var nf *store.KeyNotFoundError
	if !errors.As(err, &nf) || nf.Key != "missing" {
		t.Errorf("error should be *KeyNotFoundError for %q, got %v", "missing", err)
	}
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value store.Value
	}{
		{name: "number", value: store.Number(0.05)},
		{name: "string", value: store.String("adam")},
		{name: "bool", value: store.Bool(true)},
		{name: "null", value: store.Null()},
		{name: "bytes", value: store.Bytes([]byte{0, 1, 2})},
		{name: "list", value: store.List(store.Number(1), store.String("two"))},
		{name: "map", value: store.Map(map[string]store.Value{"beta": store.Number(0.9)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := store.New()
			s.Set("k", tt.value)
			got, err := s.Get("k")
			if err != nil {
				t.Fatalf("Get(k) after Set error = %v", err)
			}
			if !got.Equal(tt.value) {
				t.Errorf("Get(k) = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestStoreLenCountsDistinctKeys(t *testing.T) {
	t.Parallel()

	s := store.New(store.Entry{Key: "learning_rate", Value: store.Number(0.1)})
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	s.Set("momentum", store.Number(0.9))
	if got := s.Len(); got != 2 {
		t.Errorf("Len() after new key = %d, want 2", got)
	}

	s.Set("learning_rate", store.Number(0.05))
	if got := s.Len(); got != 2 {
		t.Errorf("Len() after overwrite = %d, want 2", got)
	}
}

func TestStoreKeysInsertionOrder(t *testing.T) {
	t.Parallel()

	s := store.New(
		store.Entry{Key: "zeta", Value: store.Number(1)},
		store.Entry{Key: "alpha", Value: store.Number(2)},
	)
	s.Set("mid", store.Number(3))
	s.Set("zeta", store.Number(4)) // overwrite keeps position

	want := []string{"zeta", "alpha", "mid"}
	if got := s.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}

	values := s.Values()
	if len(values) != 3 || !values[0].Equal(store.Number(4)) {
		t.Errorf("Values() = %v, want first value 4", values)
	}

	items := s.Items()
	for i, it := range items {
		if it.Key != want[i] {
			t.Errorf("Items()[%d].Key = %q, want %q", i, it.Key, want[i])
		}
	}
}

func TestStoreNewDuplicateKeys(t *testing.T) {
	t.Parallel()

	s := store.New(
		store.Entry{Key: "a", Value: store.Number(1)},
		store.Entry{Key: "b", Value: store.Number(2)},
		store.Entry{Key: "a", Value: store.Number(3)},
	)
	if got := s.Keys(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	if v, _ := s.Get("a"); !v.Equal(store.Number(3)) {
		t.Errorf("Get(a) = %s, want 3", v)
	}
}

func TestStoreKeysIsSnapshot(t *testing.T) {
	t.Parallel()

	s := store.New(store.Entry{Key: "a", Value: store.Null()})
	keys := s.Keys()
	s.Set("b", store.Null())

	if len(keys) != 1 {
		t.Errorf("snapshot changed after Set: %v", keys)
	}
	keys[0] = "mutated"
	if !s.Has("a") || s.Has("mutated") {
		t.Error("mutating the snapshot must not affect the store")
	}
}

func TestFromMapSortsKeys(t *testing.T) {
	t.Parallel()

	s, err := store.FromMap(map[string]any{
		"learning_rate": 0.1,
		"epochs":        10,
		"optimizer":     "sgd",
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	want := []string{"epochs", "learning_rate", "optimizer"}
	if got := s.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if v, _ := s.Get("epochs"); !v.Equal(store.Number(10)) {
		t.Errorf("Get(epochs) = %s, want 10", v)
	}
}

func TestFromMapRejectsUnsupported(t *testing.T) {
	t.Parallel()

	_, err := store.FromMap(map[string]any{"ch": make(chan int)})
	if !errors.Is(err, store.ErrUnsupportedValue) {
		t.Errorf("FromMap(chan) error = %v, want ErrUnsupportedValue", err)
	}
}

// Run with -race: concurrent writers and readers must not corrupt the store.
func TestStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := store.New()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Go(func() {
			for i := range 100 {
				s.Set(fmt.Sprintf("key-%d", i), store.Number(float64(w)))
				_ = s.Keys()
				_ = s.Len()
			}
		})
	}
	wg.Wait()

	if got := s.Len(); got != 100 {
		t.Errorf("Len() = %d, want 100", got)
	}
	keys := s.Keys()
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %q in Keys()", k)
		}
		seen[k] = true
	}
}
