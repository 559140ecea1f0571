// Package storage persists rendered posters.
//
// Three backends implement [Store]:
//   - [FileStore]: a directory on disk, the CLI default (posters/)
//   - [GridFSStore]: a MongoDB GridFS bucket for server deployments
//   - [MemoryStore]: in-process, for tests and ephemeral servers
//
// Names are plain filenames as produced by the pipeline; anything that looks
// like a path is rejected with INVALID_PATH. Save never leaves a partial
// object behind: either the full poster is stored or nothing is.
package storage

import (
	"context"
	"errors"
	"sync"

	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

// ErrNotFound is returned when no poster exists under a name.
var ErrNotFound = errors.New("poster not found")

// Store is the interface for poster storage backends.
type Store interface {
	// Save stores data under name and returns a human-readable location.
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Load returns the bytes stored under name, or ErrNotFound.
	Load(ctx context.Context, name string) ([]byte, error)

	// Delete removes name. Deleting a missing poster is not an error.
	Delete(ctx context.Context, name string) error
}

// =============================================================================
// Memory
// =============================================================================

// MemoryStore keeps posters in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := perrors.ValidateFilename(name); err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.files[name] = buf
	s.mu.Unlock()
	return "memory:" + name, nil
}

func (s *MemoryStore) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.files, name)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored posters.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
