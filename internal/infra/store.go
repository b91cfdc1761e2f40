package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache defaults.
const (
	DefaultTTL             = 24 * time.Hour
	DefaultMaxItems        = 1000
	DefaultCleanupFraction = 0.2
)

// Store is a byte-oriented cache with expiry.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Len() (int, error)
	Close() error
}

// StoreOptions configure expiry and eviction.
type StoreOptions struct {
	TTL      time.Duration
	MaxItems int
	// CleanupFraction is the share of the oldest entries dropped when the
	// store is full and nothing has expired.
	CleanupFraction float64
	Clock           Clock
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.CleanupFraction <= 0 || o.CleanupFraction > 1 {
		o.CleanupFraction = DefaultCleanupFraction
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

// evictCount is how many of n entries a full store drops.
func (o StoreOptions) evictCount(n int) int {
	k := int(float64(n) * o.CleanupFraction)
	if k < 1 {
		k = 1
	}
	return k
}

// GetJSON decodes the cached value of key into v.
func GetJSON(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	return s.Set(key, data)
}

// --- In-memory store ---

type memEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	opts    StoreOptions
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts StoreOptions) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		opts:    opts.withDefaults(),
	}
}

// Get returns a copy of the value stored under key.
func (c *MemoryStore) Get(key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.opts.Clock.Now().Before(e.expiresAt) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value under key, evicting when the store is full.
func (c *MemoryStore) Set(key string, value []byte) error {
	now := c.opts.Clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxItems {
		c.evictLocked(now)
	}
	c.entries[key] = memEntry{
		value:     append([]byte(nil), value...),
		storedAt:  now,
		expiresAt: now.Add(c.opts.TTL),
	}
	return nil
}

// evictLocked drops expired entries, then the oldest ones if still full.
// Must be called with mu held.
func (c *MemoryStore) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.opts.MaxItems {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.entries[keys[i]], c.entries[keys[j]]
		if a.storedAt.Equal(b.storedAt) {
			return keys[i] < keys[j]
		}
		return a.storedAt.Before(b.storedAt)
	})
	for _, k := range keys[:c.opts.evictCount(len(keys))] {
		delete(c.entries, k)
	}
}

// Delete removes key.
func (c *MemoryStore) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryStore) Len() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Close implements Store.
func (c *MemoryStore) Close() error { return nil }

// --- Disabled store ---

// NopStore never holds anything. It backs the "none" cache backend.
type NopStore struct{}

// Get always misses.
func (NopStore) Get(string) ([]byte, error) { return nil, ErrCacheMiss }

// Set discards value.
func (NopStore) Set(string, []byte) error { return nil }

// Delete implements Store.
func (NopStore) Delete(string) error { return nil }

// Len is always zero.
func (NopStore) Len() (int, error) { return 0, nil }

// Close implements Store.
func (NopStore) Close() error { return nil }

// Cache backends accepted by OpenStore.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// OpenStore opens the cache selected by backend. dir is only used by the
// badger backend.
func OpenStore(backend, dir string, opts StoreOptions) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(opts), nil
	case BackendBadger:
		return OpenBadgerStore(dir, opts)
	case BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
