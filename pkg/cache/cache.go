// Package cache provides a time-boxed on-disk memoization of search results.
//
// The store is a single JSON file mapping query strings to timestamped
// entries, fully loaded on every process invocation. A corrupt or unreadable
// store behaves as an empty cache; search must still function without it.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/zaurpkg/zaur/pkg/observability"
)

// DefaultTTL bounds how long an entry counts as a hit.
const DefaultTTL = time.Hour

// Cache memoizes JSON-marshalable values under string keys.
type Cache interface {
	// Get unmarshals the entry for key into v and reports whether a fresh
	// entry existed. Expired entries are never returned.
	Get(key string, v any) bool

	// Set stores v under key and persists immediately. Expired entries are
	// evicted as part of the write.
	Set(key string, v any) error
}

type entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// FileStore is a Cache backed by one flat JSON file.
// It is not safe for concurrent use; callers operate from a single flow.
type FileStore struct {
	path    string
	ttl     time.Duration
	entries map[string]entry
}

// Open loads the store at path. A missing, corrupt, or unreadable file
// yields an empty store (fail-open), never an error.
func Open(path string, ttl time.Duration) *FileStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &FileStore{path: path, ttl: ttl, entries: make(map[string]entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var loaded map[string]entry
	if err := json.Unmarshal(data, &loaded); err != nil {
		return s
	}
	s.entries = loaded
	return s
}

// Get implements Cache.
func (s *FileStore) Get(key string, v any) bool {
	e, ok := s.entries[key]
	if !ok || time.Since(e.Timestamp) > s.ttl {
		observability.Cache().OnCacheMiss(context.Background(), key)
		return false
	}
	if json.Unmarshal(e.Data, v) != nil {
		observability.Cache().OnCacheMiss(context.Background(), key)
		return false
	}
	observability.Cache().OnCacheHit(context.Background(), key)
	return true
}

// Set implements Cache.
func (s *FileStore) Set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.ClearExpired()
	s.entries[key] = entry{Timestamp: time.Now(), Data: data}
	observability.Cache().OnCacheSet(context.Background(), key)
	return s.persist()
}

// ClearExpired drops all entries older than the TTL, bounding growth.
func (s *FileStore) ClearExpired() {
	for key, e := range s.entries {
		if time.Since(e.Timestamp) > s.ttl {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of entries currently held, expired or not.
func (s *FileStore) Len() int { return len(s.entries) }

// Clear removes the store file and empties the in-memory map.
func (s *FileStore) Clear() error {
	s.entries = make(map[string]entry)
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) persist() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// NullCache never stores anything. Used when caching is disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache { return NullCache{} }

// Get always reports a miss.
func (NullCache) Get(string, any) bool { return false }

// Set does nothing.
func (NullCache) Set(string, any) error { return nil }

var (
	_ Cache = (*FileStore)(nil)
	_ Cache = NullCache{}
)
