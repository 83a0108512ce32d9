// Package idempotency remembers the outcome of mutating requests tagged with
// a client-supplied key, so that a retried request returns the original
// result instead of repeating its side effects.
//
// There is no in-flight lock: two requests with the same key that overlap
// both execute, and the first to finish owns the cached response.
package idempotency

import (
	"encoding/json"
)

// Key namespaces. A key reused across operations never yields a response of
// the wrong shape.
const (
	NamespaceUpload       = "upload"
	NamespaceCopy         = "copy"
	NamespacePresignRead  = "presign-read"
	NamespacePresignWrite = "presign-write"
)

// Cache stores raw responses by key for a fixed retention window.
// Get and Put never fail: backend problems read as a miss or a dropped write.
type Cache interface {
	// Get returns the stored response, or false when absent or expired.
	Get(key string) ([]byte, bool)
	// Put records response unless key already holds one.
	Put(key string, response []byte)
}

// Key joins namespace and the client key.
func Key(namespace, clientKey string) string {
	return namespace + ":" + clientKey
}

// Lookup decodes the response cached under key into a T. An empty key never
// hits. A stored value that does not decode as T is treated as a miss.
func Lookup[T any](c Cache, key string) (T, bool) {
	var zero T
	if key == "" {
		return zero, false
	}

	raw, ok := c.Get(key)
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Store encodes v and caches it under key. An empty key is a no-op.
func Store(c Cache, key string, v any) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Put(key, raw)
}
