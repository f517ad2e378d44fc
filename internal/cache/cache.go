// Package cache holds short-lived read snapshots in front of the record store.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Purge drops every entry
	Purge()
}

// Noop is a Cache that never holds anything. It is used when snapshot
// caching is disabled.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (Noop[T]) Set(string, T) {}
func (Noop[T]) Purge()        {}
