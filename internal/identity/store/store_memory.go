package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"rostersync/internal/roster/models"
	"rostersync/pkg/platform/sentinel"
	pstrings "rostersync/pkg/platform/strings"
)

// InMemory is an identity catalogue for tests and local runs.
type InMemory struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]models.Identity
	venues     map[uuid.UUID][]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		identities: make(map[uuid.UUID]models.Identity),
		venues:     make(map[uuid.UUID][]uuid.UUID),
	}
}

// Add registers identity as a member of venueID.
func (s *InMemory) Add(venueID uuid.UUID, identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity.Aliases = pstrings.DedupeAndTrim(identity.Aliases)
	s.identities[identity.ID] = identity
	if !slices.Contains(s.venues[venueID], identity.ID) {
		s.venues[venueID] = append(s.venues[venueID], identity.ID)
	}
}

// ListByVenue returns copies so callers cannot mutate the catalogue mid-batch.
func (s *InMemory) ListByVenue(_ context.Context, venueID uuid.UUID) ([]models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.venues[venueID]
	out := make([]models.Identity, 0, len(ids))
	for _, id := range ids {
		ident := s.identities[id]
		ident.Aliases = slices.Clone(ident.Aliases)
		ident.Embedding = slices.Clone(ident.Embedding)
		out = append(out, ident)
	}
	slices.SortFunc(out, func(a, b models.Identity) int {
		return compareIDs(a.ID, b.ID)
	})
	return out, nil
}

// UpsertEmbedding replaces the stored name embedding of userID.
func (s *InMemory) UpsertEmbedding(_ context.Context, userID uuid.UUID, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	ident.Embedding = slices.Clone(embedding)
	s.identities[userID] = ident
	return nil
}

func compareIDs(a, b uuid.UUID) int {
	switch as, bs := a.String(), b.String(); {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
