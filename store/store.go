package store

import "errors"

// Store errors
var (
	// ErrNotFound indicates the requested key does not exist in the store.
	ErrNotFound = errors.New("store: key not found")
)

// Store is the storage port for artifact content.
//
// Keys are slash-separated paths relative to the store root. Write and
// Rename must be atomic per destination key: a concurrent reader sees either
// the old content or the new content, never a partial write.
type Store interface {
	// Read returns the content stored under key.
	// Returns ErrNotFound if the key does not exist.
	Read(key string) ([]byte, error)

	// Write stores content under key, creating parent directories as needed.
	Write(key string, data []byte) error

	// Rename atomically moves the content at oldKey to newKey.
	// Returns ErrNotFound if oldKey does not exist. On failure the content
	// remains unchanged at oldKey.
	Rename(oldKey, newKey string) error

	// Exists reports whether key is present.
	Exists(key string) bool

	// List returns the keys under the given prefix, sorted.
	List(prefix string) ([]string, error)

	// Delete removes the content at key.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error
}
