package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FSStore stores artifact content on the local filesystem under a root
// directory. All mutations are atomic per key: content is written to a temp
// file in the destination directory and published with os.Rename.
type FSStore struct {
	root string

	// mu serializes renames so two concurrent promotions to the same
	// destination cannot interleave.
	mu sync.Mutex
}

// NewFSStore creates a filesystem store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

// Root returns the store root directory.
func (s *FSStore) Root() string {
	return s.root
}

// Read returns the content stored under key.
func (s *FSStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write stores content under key using a temp file plus rename.
func (s *FSStore) Write(key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Rename atomically moves oldKey to newKey.
func (s *FSStore) Rename(oldKey, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPath := s.path(oldKey)
	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}

	newPath := s.path(newKey)
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}

// Exists reports whether key is present.
func (s *FSStore) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// List returns the keys under prefix, sorted.
func (s *FSStore) List(prefix string) ([]string, error) {
	dir := s.path(prefix)
	var keys []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes the content at key.
func (s *FSStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FSStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
