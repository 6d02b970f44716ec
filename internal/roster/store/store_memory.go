package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"rostersync/internal/roster/models"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
)

const defaultTxTimeout = 5 * time.Second

// InMemory keeps roster versions, their shifts and the change log in maps.
// Writes made inside RunInTx are staged and applied together on success.
type InMemory struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	versions map[models.WeekKey][]models.RosterVersion
	shifts   map[uuid.UUID]models.ResolvedShift
	changes  []models.ShiftChange
}

func NewInMemory() *InMemory {
	return &InMemory{
		versions: make(map[models.WeekKey][]models.RosterVersion),
		shifts:   make(map[uuid.UUID]models.ResolvedShift),
	}
}

// RunInTx serializes transactions and commits staged writes only when fn
// returns nil.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	staged := &memTx{base: s}
	if err := fn(ctx, staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}
	return s.commit(staged)
}

func (s *InMemory) LatestVersion(ctx context.Context, key models.WeekKey) (*models.RosterVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestLocked(key)
}

func (s *InMemory) latestLocked(key models.WeekKey) (*models.RosterVersion, error) {
	versions := s.versions[key]
	if len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	latest := versions[len(versions)-1]
	latest.Shifts = slices.Clone(latest.Shifts)
	return &latest, nil
}

// ListVersions returns every version of a week, oldest first, without shifts.
func (s *InMemory) ListVersions(_ context.Context, key models.WeekKey) ([]models.RosterVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RosterVersion, 0, len(s.versions[key]))
	for _, v := range s.versions[key] {
		v.Shifts = nil
		out = append(out, v)
	}
	return out, nil
}

func (s *InMemory) InsertVersion(ctx context.Context, v *models.RosterVersion) error {
	return s.RunInTx(ctx, func(ctx context.Context, store Store) error {
		return store.InsertVersion(ctx, v)
	})
}

func (s *InMemory) InsertShifts(ctx context.Context, shifts []models.ResolvedShift) error {
	return s.RunInTx(ctx, func(ctx context.Context, store Store) error {
		return store.InsertShifts(ctx, shifts)
	})
}

func (s *InMemory) InsertChanges(ctx context.Context, changes []models.ShiftChange) error {
	return s.RunInTx(ctx, func(ctx context.Context, store Store) error {
		return store.InsertChanges(ctx, changes)
	})
}

// PendingChanges returns unclaimed change records created at or after since.
func (s *InMemory) PendingChanges(_ context.Context, since time.Time) ([]models.ShiftChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ShiftChange
	for _, c := range s.changes {
		if c.NotifiedAt == nil && !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

// ClaimChange sets notifiedAt only if the record is still unclaimed.
func (s *InMemory) ClaimChange(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.changes {
		if s.changes[i].ID != id {
			continue
		}
		if s.changes[i].NotifiedAt != nil {
			return false, nil
		}
		claimed := at
		s.changes[i].NotifiedAt = &claimed
		return true, nil
	}
	return false, sentinel.ErrNotFound
}

// ReleaseChange clears a claim made at claimedAt. A claim taken at a
// different instant is left alone.
func (s *InMemory) ReleaseChange(_ context.Context, id uuid.UUID, claimedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.changes {
		if s.changes[i].ID != id {
			continue
		}
		if s.changes[i].NotifiedAt == nil || !s.changes[i].NotifiedAt.Equal(claimedAt) {
			return false, nil
		}
		s.changes[i].NotifiedAt = nil
		return true, nil
	}
	return false, sentinel.ErrNotFound
}

// ShiftsByID returns the shifts that exist among ids.
func (s *InMemory) ShiftsByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ResolvedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]models.ResolvedShift, len(ids))
	for _, id := range ids {
		if sh, ok := s.shifts[id]; ok {
			out[id] = sh
		}
	}
	return out, nil
}

func (s *InMemory) commit(t *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range t.versions {
		if s.hasVersionLocked(v.Key(), v.Version) {
			return fmt.Errorf("insert roster version %d: %w", v.Version, sentinel.ErrConflict)
		}
	}
	for _, v := range t.versions {
		key := v.Key()
		s.versions[key] = append(s.versions[key], v)
		slices.SortFunc(s.versions[key], func(a, b models.RosterVersion) int { return a.Version - b.Version })
	}
	for _, sh := range t.shifts {
		s.shifts[sh.ID] = sh
		s.attachShiftLocked(sh)
	}
	s.changes = append(s.changes, t.changes...)
	return nil
}

func (s *InMemory) attachShiftLocked(sh models.ResolvedShift) {
	for key, versions := range s.versions {
		for i := range versions {
			if versions[i].ID == sh.RosterVersionID {
				s.versions[key][i].Shifts = append(s.versions[key][i].Shifts, sh)
				return
			}
		}
	}
}

func (s *InMemory) hasVersionLocked(key models.WeekKey, version int) bool {
	for _, v := range s.versions[key] {
		if v.Version == version {
			return true
		}
	}
	return false
}

// memTx stages writes for one RunInTx call and reads through to the base.
type memTx struct {
	base     *InMemory
	versions []models.RosterVersion
	shifts   []models.ResolvedShift
	changes  []models.ShiftChange
}

func (t *memTx) LatestVersion(_ context.Context, key models.WeekKey) (*models.RosterVersion, error) {
	for i := len(t.versions) - 1; i >= 0; i-- {
		if t.versions[i].Key() == key {
			v := t.versions[i]
			return &v, nil
		}
	}
	t.base.mu.RLock()
	defer t.base.mu.RUnlock()
	return t.base.latestLocked(key)
}

func (t *memTx) InsertVersion(_ context.Context, v *models.RosterVersion) error {
	t.base.mu.RLock()
	exists := t.base.hasVersionLocked(v.Key(), v.Version)
	t.base.mu.RUnlock()
	if exists {
		return fmt.Errorf("insert roster version %d: %w", v.Version, sentinel.ErrConflict)
	}
	for _, staged := range t.versions {
		if staged.Key() == v.Key() && staged.Version == v.Version {
			return fmt.Errorf("insert roster version %d: %w", v.Version, sentinel.ErrConflict)
		}
	}
	stored := *v
	stored.Shifts = nil
	t.versions = append(t.versions, stored)
	return nil
}

func (t *memTx) InsertShifts(_ context.Context, shifts []models.ResolvedShift) error {
	t.shifts = append(t.shifts, shifts...)
	return nil
}

func (t *memTx) InsertChanges(_ context.Context, changes []models.ShiftChange) error {
	t.changes = append(t.changes, changes...)
	return nil
}
