package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// EmbeddingStore is an in-memory repositories.EmbeddingRepository
type EmbeddingStore struct {
	mu   sync.RWMutex
	docs map[string]*entities.EmbeddingDocument
}

// NewEmbeddingStore creates a store seeded with docs
func NewEmbeddingStore(docs ...*entities.EmbeddingDocument) *EmbeddingStore {
	s := &EmbeddingStore{docs: make(map[string]*entities.EmbeddingDocument)}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

// FindByNaturalKey implements repositories.EmbeddingRepository
func (s *EmbeddingStore) FindByNaturalKey(_ context.Context, entityType entities.EntityType, entityID string) (*entities.EmbeddingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.sortedIDs() {
		doc := s.docs[id]
		if t, eid, ok := doc.NaturalKey(); ok && t == entityType && eid == entityID {
			clone := *doc
			return &clone, nil
		}
	}
	return nil, apperrors.NewNotFoundError("embedding document not found")
}

// Create implements repositories.EmbeddingRepository
func (s *EmbeddingStore) Create(_ context.Context, doc *entities.EmbeddingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return apperrors.NewConflictError("embedding document already exists")
	}
	now := time.Now().UTC()
	clone := *doc
	clone.CreatedAt, clone.UpdatedAt = now, now
	s.docs[doc.ID] = &clone
	return nil
}

// Update implements repositories.EmbeddingRepository
func (s *EmbeddingStore) Update(_ context.Context, doc *entities.EmbeddingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[doc.ID]
	if !ok {
		return apperrors.NewNotFoundError("embedding document not found")
	}
	clone := *doc
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now().UTC()
	s.docs[doc.ID] = &clone
	return nil
}

// ListActive implements repositories.EmbeddingRepository
func (s *EmbeddingStore) ListActive(_ context.Context) ([]*entities.EmbeddingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.EmbeddingDocument
	for _, id := range s.sortedIDs() {
		if doc := s.docs[id]; doc.IsActive {
			clone := *doc
			out = append(out, &clone)
		}
	}
	return out, nil
}

// Deactivate implements repositories.EmbeddingRepository
func (s *EmbeddingStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return apperrors.NewNotFoundError("embedding document not found")
	}
	doc.IsActive = false
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// Len returns the number of stored documents, active or not
func (s *EmbeddingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *EmbeddingStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
