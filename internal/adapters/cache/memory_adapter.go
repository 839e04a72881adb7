package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/providers"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryAdapter is a process-local CacheProvider used with DB_DRIVER=memory
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryAdapter creates an empty in-process cache
func NewMemoryAdapter() providers.CacheProvider {
	return newMemoryAdapter(time.Now)
}

func newMemoryAdapter(now func() time.Time) *MemoryAdapter {
	return &MemoryAdapter{entries: make(map[string]memoryEntry), now: now}
}

func (a *MemoryAdapter) live(key string) (memoryEntry, bool) {
	e, ok := a.entries[key]
	if !ok {
		return e, false
	}
	if !e.expires.IsZero() && !a.now().Before(e.expires) {
		delete(a.entries, key)
		return e, false
	}
	return e, true
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(_ context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.live(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores a value; zero expiration keeps it forever
func (a *MemoryAdapter) Set(_ context.Context, key string, value []byte, expirationSeconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		e.expires = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}
	a.entries[key] = e
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entries, key)
	return nil
}

// DeletePattern removes every key matching a glob pattern
func (a *MemoryAdapter) DeletePattern(_ context.Context, pattern string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key := range a.entries {
		if globMatch(pattern, key) {
			delete(a.entries, key)
		}
	}
	return nil
}

// globMatch implements the Redis KEYS subset used here: '*' matches any run
// of characters, '/' included, and '?' matches one character.
func globMatch(pattern, key string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for pattern != "" && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if globMatch(pattern, key[i:]) {
					return true
				}
			}
			return false
		case '?':
			if key == "" {
				return false
			}
		default:
			if key == "" || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return key == ""
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(_ context.Context, key string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.live(key)
	return ok, nil
}
