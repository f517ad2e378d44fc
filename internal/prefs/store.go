// Package prefs keeps the small flat key-value cache that remembers the last
// values typed into the entry form, and invalidates it when its version
// changes. Nothing in here is durable record data.
package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"coffee/internal/log"
)

// Store is a string-keyed flat cache persisted as a YAML document.
type Store struct {
	mu     sync.Mutex
	path   string
	values map[string]any
	dirty  bool
	logger *slog.Logger
}

// Open loads the cache at path. A missing file yields an empty cache; an
// unreadable document is treated as empty and logged, never returned.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		values: make(map[string]any),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		logger.Warn("Prefs file unreadable, starting empty", log.FieldPath, path, log.FieldError, err)
		s.dirty = true
		return s, nil
	}
	if values != nil {
		s.values = values
	}
	return s, nil
}

// NewMemory returns a cache that is never written to disk.
func NewMemory() *Store {
	return &Store{values: make(map[string]any), logger: slog.Default()}
}

// Has reports whether key holds a value.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string at key. Values of another type count as absent.
func (s *Store) String(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key].(string)
	return v, ok
}

// Bool returns the bool at key. Values of another type count as absent.
func (s *Store) Bool(key string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key].(bool)
	return v, ok
}

// Int returns the integer at key. Numeric strings are accepted; anything
// else counts as absent.
func (s *Store) Int(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := s.values[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Set stores value at key. Only strings, bools and ints are expected.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.dirty = true
}

// Remove deletes the given keys.
func (s *Store) Remove(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			s.dirty = true
		}
	}
}

// Flush writes the cache to disk if it changed since the last flush. The
// file is replaced atomically.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.path == "" {
		s.dirty = false
		return nil
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp prefs file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace prefs file: %w", err)
	}

	s.dirty = false
	return nil
}
