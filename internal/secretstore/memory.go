package secretstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, used for tests and for operators who
// run the catalog without an external secret backend configured.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[Handle][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[Handle][]byte)}
}

func (s *MemoryStore) Create(_ context.Context, blob []byte) (Handle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	h := Handle(id.String())

	cp := make([]byte, len(blob))
	copy(cp, blob)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[h] = cp
	return h, nil
}

func (s *MemoryStore) Get(_ context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.secrets[handle]
	if !ok {
		return nil, fmt.Errorf("secretstore: unknown handle %q", handle)
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, handle)
	return nil
}
