// Package kv provides the small string key/value stores todo state is
// persisted into. Values are opaque strings; the todo layer owns their
// encoding. Implementations: a plain directory (one file per key), a
// SQLite database, and an in-memory map for tests.
package kv

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
)

// Store is the persistence capability handed to the todo store.
type Store interface {
	// Get returns the value for key and whether the key exists.
	Get(key string) (string, bool, error)
	// Set writes the value for key, creating it if missing.
	Set(key, value string) error
}

// Fingerprint returns a cheap change marker covering the given keys.
// Watchers poll it to notice writes made by other processes.
func Fingerprint(s Store, keys ...string) (string, error) {
	h := fnv.New64a()
	for _, k := range keys {
		v, ok, err := s.Get(k)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00%t\x00%s\x00", k, ok, v)
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// Mem is an in-memory Store. Safe for concurrent use.
type Mem struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMem() *Mem {
	return &Mem{m: map[string]string{}}
}

func (s *Mem) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Mem) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}
