// Package toolutil provides shared helper functions for go_tutor MCP tools.
package toolutil

import (
	"context"
	"encoding/json"

	"github.com/anatolykoptev/go_tutor/internal/engine"
)

// Owner normalises an owner id: empty → configured default → "local".
func Owner(owner string) string {
	if owner != "" {
		return owner
	}
	if engine.Cfg.DefaultOwner != "" {
		return engine.Cfg.DefaultOwner
	}
	return "local"
}

// CacheLoadJSON tries to load a cached value of type T from the engine cache.
// Returns the decoded value and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	data, ok := engine.CacheGet(ctx, key)
	if !ok {
		var zero T
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it in the engine cache.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	engine.CacheSet(ctx, key, data)
}
