// Package cache provides the device-local persistence layer used to mirror
// remote collections and to queue writes that failed due to connectivity
// loss. All operations are best-effort: a cache failure must never abort
// the primary operation, so the interface exposes no error returns on the
// write path and reads report only presence.
package cache

import (
	"context"
	"encoding/json"
)

// Store is the injected cache capability. Keys map to JSON-encoded values;
// queues are append-only lists drained by the sync worker.
type Store interface {
	// Get returns the raw value for key. Absent is a valid, expected
	// outcome; malformed or unreachable slots read as absent.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set overwrites key unconditionally. Last write wins. Failures are
	// logged and swallowed.
	Set(ctx context.Context, key string, value []byte)
	// AppendToQueue appends item to the named queue.
	AppendToQueue(ctx context.Context, queue string, item []byte)
	// DrainQueue removes and returns up to max items from the head of the
	// named queue. An empty queue yields an empty slice.
	DrainQueue(ctx context.Context, queue string, max int) [][]byte
}

// SetJSON marshals v and stores it under key. Serialization failures are
// swallowed like any other cache failure.
func SetJSON(ctx context.Context, s Store, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.Set(ctx, key, raw)
}

// GetJSON loads key and unmarshals it into v. A malformed slot reads as
// absent.
func GetJSON(ctx context.Context, s Store, key string, v any) bool {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false
	}
	return true
}
