package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

type reference struct {
	id   string
	name string
}

// ReferenceStore is an in-memory repositories.ReferenceRepository
type ReferenceStore struct {
	mu   sync.RWMutex
	refs map[entities.ReferenceKind][]reference
	// NameLookups counts GetNames round-trips
	NameLookups int
}

// NewReferenceStore creates an empty reference store
func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{refs: make(map[entities.ReferenceKind][]reference)}
}

// Add registers a reference under kind
func (s *ReferenceStore) Add(kind entities.ReferenceKind, id, name string) *ReferenceStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[kind] = append(s.refs[kind], reference{id: id, name: name})
	return s
}

// FindIDsByName implements repositories.ReferenceRepository
func (s *ReferenceStore) FindIDsByName(_ context.Context, kind entities.ReferenceKind, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, nil
	}

	var exact, partial []string
	for _, ref := range s.refs[kind] {
		lower := strings.ToLower(ref.name)
		switch {
		case lower == needle:
			exact = append(exact, ref.id)
		case strings.Contains(lower, needle):
			partial = append(partial, ref.id)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return partial, nil
}

// GetNames implements repositories.ReferenceRepository
func (s *ReferenceStore) GetNames(_ context.Context, kind entities.ReferenceKind, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NameLookups++

	out := make(map[string]string, len(ids))
	for _, ref := range s.refs[kind] {
		for _, id := range ids {
			if ref.id == id {
				out[id] = ref.name
			}
		}
	}
	return out, nil
}
