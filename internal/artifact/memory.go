package artifact

import (
	"context"
	"sync"

	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// MemoryStore keeps artifacts in a map. Used by tests and `--store memory`.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key.Path()] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key.Path()]
	if !ok {
		return nil, errors.Wrapf(errors.ErrArtifactNotFound, "artifact %s", key)
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Exists(_ context.Context, key Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key.Path()]
	return ok, nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key.Path())
}
