// Package store holds the console's local persisted state: keyed JSON blobs
// for the dataset list and the saved API keys. The persistence backend is an
// injected dependency, so tests substitute the in-memory implementation.
//
// Access is load-all / mutate / persist-all with last-write-wins semantics.
// That is acceptable for a single-operator tool; concurrent writers race.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// BlobStore persists keyed JSON blobs.
type BlobStore interface {
	// Get returns the blob for key. ok is false when the key has no blob;
	// that is not an error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Put writes the blob for key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the blob for key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// FileBlobStore keeps each blob as <dir>/<key>.json.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore creates the directory if needed and returns a store over it.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}

	return &FileBlobStore{dir: dir}, nil
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get implements BlobStore.
func (s *FileBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read blob %s: %w", key, err)
	}

	return data, true, nil
}

// Put implements BlobStore. The write goes through a temp file and rename so
// a crash mid-write never leaves a truncated blob behind.
func (s *FileBlobStore) Put(_ context.Context, key string, data []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}

	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("rename blob %s: %w", key, err)
	}

	return nil
}

// Delete implements BlobStore.
func (s *FileBlobStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}

	return nil
}

// MemoryBlobStore is the in-memory BlobStore used in tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore returns an empty in-memory store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Get implements BlobStore.
func (s *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, true, nil
}

// Put implements BlobStore.
func (s *MemoryBlobStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored

	return nil
}

// Delete implements BlobStore.
func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)

	return nil
}

// Has reports whether a blob exists for key. Test helper.
func (s *MemoryBlobStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[key]

	return ok
}
