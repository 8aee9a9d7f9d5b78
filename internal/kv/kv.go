// Package kv defines the synchronous key-value persistence port used for the
// trial-usage table, backup snapshots and the memory backend's data blobs.
package kv

// Store is a device-scoped key-value store. Get reports whether the key was
// present; a missing key is not an error.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}
