// internal/persist/adapter.go
//
// Write-through JSON persistence with dedup.
// Responsibilities:
//   - Save: serialize a value and skip the backend write when the payload is
//     byte-identical to the last one stored for that key.
//   - Load: serve from a process-local cache; otherwise read, parse and cache.
//   - Degrade on failure: read/parse/write errors are logged and turned into
//     "fallback" / "not written", never returned to the engines.

package persist

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const differencesPrefix = "differences"

// DifferencesKey is the storage key for a level's authored differences.
func DifferencesKey(levelID string) string {
	if levelID == "" {
		return differencesPrefix
	}
	return differencesPrefix + "-" + levelID
}

// entry is the cached view of one key. present=false means the backend had
// no usable value (missing, unreadable or corrupt).
type entry struct {
	raw     string
	present bool
}

// Adapter caches and deduplicates access to a Backend.
type Adapter struct {
	backend Backend

	mu    sync.Mutex
	cache map[string]entry
}

// NewAdapter wraps backend with an empty cache.
func NewAdapter(b Backend) *Adapter {
	return &Adapter{backend: b, cache: make(map[string]entry)}
}

// Save writes value under key unless the serialized form is unchanged.
// It reports whether a backend write happened.
func (a *Adapter) Save(ctx context.Context, key string, value any) bool {
	if key == "" {
		return false
	}
	b, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("persist: encode failed")
		return false
	}
	serialized := string(b)

	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.cache[key]; ok && e.present && e.raw == serialized {
		return false
	}
	if err := a.backend.Set(ctx, key, serialized); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("persist: write failed")
		return false
	}
	a.cache[key] = entry{raw: serialized, present: true}
	return true
}

// raw returns the cached or freshly read payload for key.
func (a *Adapter) raw(ctx context.Context, key string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.cache[key]; ok {
		return e.raw, e.present
	}
	v, ok, err := a.backend.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("persist: read failed")
		a.cache[key] = entry{}
		return "", false
	}
	if !ok || v == "" {
		a.cache[key] = entry{}
		return "", false
	}
	if !json.Valid([]byte(v)) {
		log.Warn().Str("key", key).Msg("persist: stored value is not valid JSON")
		a.cache[key] = entry{}
		return "", false
	}
	a.cache[key] = entry{raw: v, present: true}
	return v, true
}

// Load decodes the value stored under key, or returns fallback when the key
// is missing, unreadable, or does not decode into T.
func Load[T any](ctx context.Context, a *Adapter, key string, fallback T) T {
	if key == "" {
		return fallback
	}
	raw, ok := a.raw(ctx, key)
	if !ok {
		return fallback
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("persist: decode failed")
		return fallback
	}
	return out
}

// Clear removes key from the backend and the cache.
func (a *Adapter) Clear(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.backend.Remove(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("persist: remove failed")
		return false
	}
	delete(a.cache, key)
	return true
}

// ResetCache forgets every cached entry; the next Load reads the backend.
func (a *Adapter) ResetCache() {
	a.mu.Lock()
	a.cache = make(map[string]entry)
	a.mu.Unlock()
}
