package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rostersync/internal/roster/models"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	key   models.WeekKey
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.key = models.WeekKey{VenueID: uuid.New(), WeekStart: "2024-01-01"}
}

func (s *InMemorySuite) version(n int) *models.RosterVersion {
	return &models.RosterVersion{
		ID:        uuid.New(),
		VenueID:   s.key.VenueID,
		WeekStart: s.key.WeekStart,
		Version:   n,
		Status:    models.RosterStatusDraft,
		CreatedAt: time.Now(),
	}
}

func (s *InMemorySuite) TestLatestVersion() {
	s.Run("not found for an empty week", func() {
		_, err := s.store.LatestVersion(s.ctx, s.key)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns highest version with its shifts", func() {
		v1, v2 := s.version(1), s.version(2)
		userID := uuid.New()
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			s.Require().NoError(st.InsertVersion(ctx, v1))
			s.Require().NoError(st.InsertVersion(ctx, v2))
			return st.InsertShifts(ctx, []models.ResolvedShift{{ID: uuid.New(), RosterVersionID: v2.ID, IdentityID: &userID, Date: "2024-01-01"}})
		})
		s.Require().NoError(err)

		got, err := s.store.LatestVersion(s.ctx, s.key)

		s.Require().NoError(err)
		s.Equal(2, got.Version)
		s.Len(got.Shifts, 1)
	})
}

func (s *InMemorySuite) TestRunInTx() {
	s.Run("failed transaction leaves nothing behind", func() {
		boom := errors.New("boom")
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			s.Require().NoError(st.InsertVersion(ctx, s.version(1)))
			s.Require().NoError(st.InsertChanges(ctx, []models.ShiftChange{{ID: uuid.New(), CreatedAt: time.Now()}}))
			return boom
		})
		s.ErrorIs(err, boom)

		_, err = s.store.LatestVersion(s.ctx, s.key)
		s.ErrorIs(err, sentinel.ErrNotFound)
		pending, err := s.store.PendingChanges(s.ctx, time.Time{})
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("staged versions are visible inside the transaction", func() {
		err := s.store.RunInTx(s.ctx, func(ctx context.Context, st Store) error {
			s.Require().NoError(st.InsertVersion(ctx, s.version(1)))
			latest, err := st.LatestVersion(ctx, s.key)
			s.Require().NoError(err)
			s.Equal(1, latest.Version)
			return nil
		})
		s.Require().NoError(err)
	})

	s.Run("duplicate version number conflicts", func() {
		err := s.store.InsertVersion(s.ctx, s.version(1))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("cancelled context is a timeout", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		err := s.store.RunInTx(ctx, func(context.Context, Store) error { return nil })
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func (s *InMemorySuite) TestClaimChange() {
	id := uuid.New()
	s.Require().NoError(s.store.InsertChanges(s.ctx, []models.ShiftChange{{ID: id, CreatedAt: time.Now()}}))

	s.Run("only one concurrent claim wins", func() {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		at := time.Now()
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.store.ClaimChange(s.ctx, id, at)
				s.NoError(err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		s.Equal(1, wins)

		pending, err := s.store.PendingChanges(s.ctx, time.Time{})
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("release only undoes the matching claim", func() {
		other := uuid.New()
		s.Require().NoError(s.store.InsertChanges(s.ctx, []models.ShiftChange{{ID: other, CreatedAt: time.Now()}}))
		at := time.Now()
		ok, err := s.store.ClaimChange(s.ctx, other, at)
		s.Require().NoError(err)
		s.Require().True(ok)

		released, err := s.store.ReleaseChange(s.ctx, other, at.Add(time.Second))
		s.Require().NoError(err)
		s.False(released)

		released, err = s.store.ReleaseChange(s.ctx, other, at)
		s.Require().NoError(err)
		s.True(released)
	})

	s.Run("unknown change is not found", func() {
		_, err := s.store.ClaimChange(s.ctx, uuid.New(), time.Now())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestPendingChangesWindow() {
	now := time.Now()
	s.Require().NoError(s.store.InsertChanges(s.ctx, []models.ShiftChange{
		{ID: uuid.New(), CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)},
	}))

	pending, err := s.store.PendingChanges(s.ctx, now.Add(-10*time.Minute))

	s.Require().NoError(err)
	s.Len(pending, 1)
}
