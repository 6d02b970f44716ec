// Package store reads pending change records and recipients for the
// notification sweep and records what was sent.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rostersync/internal/notification/models"
	rostermodels "rostersync/internal/roster/models"
	"rostersync/pkg/platform/sentinel"
)

// ChangeLog is the change record and shift side of the roster store.
type ChangeLog interface {
	PendingChanges(ctx context.Context, since time.Time) ([]rostermodels.ShiftChange, error)
	ClaimChange(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseChange(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error)
	ShiftsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]rostermodels.ResolvedShift, error)
}

// InMemory keeps recipients and the notification log in memory and
// delegates change records to a roster store.
type InMemory struct {
	ChangeLog

	mu         sync.RWMutex
	recipients map[uuid.UUID]models.Recipient
	log        []models.LogEntry
}

func NewInMemory(changes ChangeLog) *InMemory {
	return &InMemory{
		ChangeLog:  changes,
		recipients: make(map[uuid.UUID]models.Recipient),
	}
}

// PutRecipient adds or replaces a recipient.
func (s *InMemory) PutRecipient(r models.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.DeviceTokens = slices.Clone(r.DeviceTokens)
	s.recipients[r.UserID] = r
}

func (s *InMemory) Recipient(_ context.Context, userID uuid.UUID) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipients[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	r.DeviceTokens = slices.Clone(r.DeviceTokens)
	return &r, nil
}

func (s *InMemory) AppendLog(_ context.Context, entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.SentVia = slices.Clone(entry.SentVia)
	s.log = append(s.log, entry)
	return nil
}

// Log returns a copy of every entry appended so far.
func (s *InMemory) Log() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.log)
}
