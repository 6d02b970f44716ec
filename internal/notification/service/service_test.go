package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,CopyGenerator,PushSender,EmailSender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rostersync/internal/notification/models"
	"rostersync/internal/notification/service/mocks"
	notificationstore "rostersync/internal/notification/store"
	rostermodels "rostersync/internal/roster/models"
	rosterstore "rostersync/internal/roster/store"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
	"rostersync/pkg/requestcontext"
)

// =============================================================================
// Notification Sweep Test Suite
// =============================================================================
// Justification for unit tests: the sweep is the only writer of a change's
// notified mark. Tests pin the claim-then-dispatch order, release on
// failure, per-user isolation and channel selection.

type SweepSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	copy    *mocks.MockCopyGenerator
	push    *mocks.MockPushSender
	email   *mocks.MockEmailSender
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.copy = mocks.NewMockCopyGenerator(s.ctrl)
	s.push = mocks.NewMockPushSender(s.ctrl)
	s.email = mocks.NewMockEmailSender(s.ctrl)
	s.now = time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var err error
	s.service, err = New(s.store, s.copy, s.push,
		WithLogger(logger),
		WithEmail(s.email),
		WithTimezone("Australia/Perth"),
	)
	s.Require().NoError(err)
}

func (s *SweepSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SweepSuite) change(userID uuid.UUID, newShift uuid.UUID) rostermodels.ShiftChange {
	return rostermodels.ShiftChange{
		ID:         uuid.New(),
		VenueID:    uuid.New(),
		UserID:     userID,
		ChangeType: rostermodels.ChangeInserted,
		NewShiftID: &newShift,
		CreatedAt:  s.now.Add(-time.Minute),
	}
}

func pushRecipient(userID uuid.UUID) *models.Recipient {
	return &models.Recipient{
		UserID:       userID,
		DisplayName:  "Ana Diaz",
		Email:        "ana@example.com",
		Prefs:        models.Prefs{PushEnabled: true},
		DeviceTokens: []models.DeviceToken{{Token: "tok-1", Platform: "ios"}},
	}
}

func shiftOn(id uuid.UUID, date rostermodels.Date) rostermodels.ResolvedShift {
	return rostermodels.ResolvedShift{ID: id, Date: date, StartTime: "09:00", EndTime: "17:00", Role: "Bar"}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *SweepSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.copy, s.push)
		s.ErrorContains(err, "notification store is required")
	})

	s.Run("nil copy generator returns error", func() {
		_, err := New(s.store, nil, s.push)
		s.ErrorContains(err, "copy generator is required")
	})

	s.Run("nil push sender returns error", func() {
		_, err := New(s.store, s.copy, nil)
		s.ErrorContains(err, "push sender is required")
	})

	s.Run("defaults", func() {
		svc, err := New(s.store, s.copy, s.push, WithWindow(0), WithTimezone(""))
		s.Require().NoError(err)
		s.Equal(defaultWindow, svc.window)
		s.Equal(defaultTimezone, svc.timezone)
		s.Nil(svc.email)
	})
}

// =============================================================================
// Sweep Tests
// =============================================================================

func (s *SweepSuite) TestSweepNothingPending() {
	s.Run("empty store", func() {
		s.store.EXPECT().PendingChanges(gomock.Any(), s.now.Add(-defaultWindow)).Return(nil, nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(&Result{Processed: 0, Message: "No changes to process"}, res)
	})

	s.Run("changes outside the window are ignored", func() {
		old := s.change(uuid.New(), uuid.New())
		old.CreatedAt = s.now.Add(-time.Hour)
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{old}, nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, res.Processed)
	})
}

func (s *SweepSuite) TestSweepLoadFailure() {
	s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := s.service.Sweep(s.ctx)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *SweepSuite) TestSweepDispatchesAfterClaim() {
	userID := uuid.New()
	monday, tuesday := uuid.New(), uuid.New()
	changes := []rostermodels.ShiftChange{s.change(userID, tuesday), s.change(userID, monday)}

	var claimedAt time.Time
	gomock.InOrder(
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return(changes, nil),
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(pushRecipient(userID), nil),
		s.store.EXPECT().ClaimChange(gomock.Any(), changes[0].ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, at time.Time) (bool, error) {
				claimedAt = at
				return true, nil
			}),
		s.store.EXPECT().ClaimChange(gomock.Any(), changes[1].ID, gomock.Any()).Return(true, nil),
		s.store.EXPECT().ShiftsByID(gomock.Any(), []uuid.UUID{tuesday, monday}).Return(map[uuid.UUID]rostermodels.ResolvedShift{
			monday:  shiftOn(monday, "2024-01-01"),
			tuesday: shiftOn(tuesday, "2024-01-02"),
		}, nil),
		s.copy.EXPECT().Generate(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req models.CopyRequest) (models.Copy, error) {
				s.Equal(userID, req.UserID)
				s.Equal("Ana Diaz", req.UserName)
				s.Equal("Australia/Perth", req.Timezone)
				s.Empty(req.OldShifts)
				s.Require().Len(req.NewShifts, 2)
				s.Equal("2024-01-01", req.NewShifts[0].Date)
				s.Equal("2024-01-02", req.NewShifts[1].Date)
				return models.Copy{Title: "New shifts", Body: "You work Mon and Tue"}, nil
			}),
		s.push.EXPECT().SendPush(gomock.Any(), *pushRecipient(userID), models.Copy{Title: "New shifts", Body: "You work Mon and Tue"}).Return(nil),
		s.store.EXPECT().AppendLog(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry models.LogEntry) error {
				s.Equal(userID, entry.UserID)
				s.Equal(models.TypeShiftChange, entry.Type)
				s.Equal([]string{models.ChannelPush}, entry.SentVia)
				s.Equal(models.StatusSent, entry.Status)
				s.Equal(claimedAt, entry.CreatedAt)
				return nil
			}),
	)

	res, err := s.service.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(&Result{Processed: 2, Message: "Processed 2 shift change notifications"}, res)
	s.Equal(claimedAt, claimedAt.Truncate(time.Microsecond))
}

func (s *SweepSuite) TestSweepLostClaim() {
	userID := uuid.New()
	change := s.change(userID, uuid.New())
	s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
	s.store.EXPECT().Recipient(gomock.Any(), userID).Return(pushRecipient(userID), nil)
	s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(false, nil)

	res, err := s.service.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, res.Processed)
}

func (s *SweepSuite) TestSweepClaimsWithoutDispatch() {
	s.Run("no enabled channel", func() {
		userID := uuid.New()
		change := s.change(userID, uuid.New())
		r := pushRecipient(userID)
		r.Prefs.PushEnabled = false
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(r, nil)
		s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(true, nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Processed)
	})

	s.Run("push enabled without device tokens", func() {
		userID := uuid.New()
		change := s.change(userID, uuid.New())
		r := pushRecipient(userID)
		r.DeviceTokens = nil
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(r, nil)
		s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(true, nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Processed)
	})

	s.Run("unknown recipient", func() {
		userID := uuid.New()
		change := s.change(userID, uuid.New())
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(nil, sentinel.ErrNotFound)
		s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(true, nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Processed)
	})

	s.Run("email preference without an email sender", func() {
		svc, err := New(s.store, s.copy, s.push)
		s.Require().NoError(err)
		userID := uuid.New()
		change := s.change(userID, uuid.New())
		r := pushRecipient(userID)
		r.Prefs = models.Prefs{EmailEnabled: true}
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(r, nil)
		s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(true, nil)

		res, err := svc.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Processed)
	})
}

func (s *SweepSuite) TestSweepReleasesOnFailure() {
	s.Run("copy generation fails", func() {
		userID := uuid.New()
		change := s.change(userID, uuid.New())
		var claimedAt time.Time
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), userID).Return(pushRecipient(userID), nil)
		s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, at time.Time) (bool, error) {
				claimedAt = at
				return true, nil
			})
		s.store.EXPECT().ShiftsByID(gomock.Any(), gomock.Any()).Return(map[uuid.UUID]rostermodels.ResolvedShift{}, nil)
		s.copy.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(models.Copy{}, errors.New("model offline"))
		s.store.EXPECT().ReleaseChange(gomock.Any(), change.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, at time.Time) (bool, error) {
				s.Equal(claimedAt, at)
				return true, nil
			})

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(0, res.Processed)
	})

	s.Run("one user's delivery failure does not stop the next", func() {
		failing, healthy := uuid.New(), uuid.New()
		failingChange, healthyChange := s.change(failing, uuid.New()), s.change(healthy, uuid.New())
		s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).
			Return([]rostermodels.ShiftChange{failingChange, healthyChange}, nil)
		s.store.EXPECT().Recipient(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, id uuid.UUID) (*models.Recipient, error) {
				return pushRecipient(id), nil
			}).Times(2)
		s.store.EXPECT().ClaimChange(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
		s.store.EXPECT().ShiftsByID(gomock.Any(), gomock.Any()).Return(map[uuid.UUID]rostermodels.ResolvedShift{}, nil).Times(2)
		s.copy.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(models.Fallback(), nil).Times(2)
		s.push.EXPECT().SendPush(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r models.Recipient, _ models.Copy) error {
				if r.UserID == failing {
					return errors.New("broker unavailable")
				}
				return nil
			}).Times(2)
		s.store.EXPECT().ReleaseChange(gomock.Any(), failingChange.ID, gomock.Any()).Return(true, nil)
		s.store.EXPECT().AppendLog(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.service.Sweep(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, res.Processed)
	})
}

func (s *SweepSuite) TestSweepPartialDelivery() {
	userID := uuid.New()
	change := s.change(userID, uuid.New())
	r := pushRecipient(userID)
	r.Prefs.EmailEnabled = true
	s.store.EXPECT().PendingChanges(gomock.Any(), gomock.Any()).Return([]rostermodels.ShiftChange{change}, nil)
	s.store.EXPECT().Recipient(gomock.Any(), userID).Return(r, nil)
	s.store.EXPECT().ClaimChange(gomock.Any(), change.ID, gomock.Any()).Return(true, nil)
	s.store.EXPECT().ShiftsByID(gomock.Any(), gomock.Any()).Return(map[uuid.UUID]rostermodels.ResolvedShift{}, nil)
	s.copy.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(models.Fallback(), nil)
	s.push.EXPECT().SendPush(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.email.EXPECT().SendEmail(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("relay down"))
	s.store.EXPECT().AppendLog(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry models.LogEntry) error {
			s.Equal(models.StatusPartial, entry.Status)
			s.Equal([]string{models.ChannelPush}, entry.SentVia)
			return nil
		})

	res, err := s.service.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Processed)
}

// =============================================================================
// Concurrent Sweeps
// =============================================================================

type recordingCopy struct {
	mu       sync.Mutex
	requests []models.CopyRequest
}

func (c *recordingCopy) Generate(_ context.Context, req models.CopyRequest) (models.Copy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return models.Fallback(), nil
}

type countingPush struct {
	mu   sync.Mutex
	sent int
}

func (p *countingPush) SendPush(context.Context, models.Recipient, models.Copy) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent++
	return nil
}

func TestConcurrentSweepsNeverShareAChange(t *testing.T) {
	ctx := context.Background()
	changes := rosterstore.NewInMemory()
	st := notificationstore.NewInMemory(changes)

	version := rostermodels.RosterVersion{
		ID:        uuid.New(),
		VenueID:   uuid.New(),
		WeekStart: "2024-01-01",
		Version:   1,
		Status:    rostermodels.RosterStatusDraft,
		CreatedAt: time.Now(),
	}
	var (
		shifts  []rostermodels.ResolvedShift
		records []rostermodels.ShiftChange
	)
	dates := []rostermodels.Date{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"}
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, date := range dates {
		userID := users[i%len(users)]
		sh := shiftOn(uuid.New(), date)
		sh.RosterVersionID = version.ID
		sh.IdentityID = &userID
		shifts = append(shifts, sh)
		records = append(records, rostermodels.ShiftChange{
			ID:              uuid.New(),
			VenueID:         version.VenueID,
			UserID:          userID,
			RosterVersionID: version.ID,
			ChangeType:      rostermodels.ChangeInserted,
			NewShiftID:      &sh.ID,
			CreatedAt:       time.Now(),
		})
	}
	for _, userID := range users {
		st.PutRecipient(*pushRecipient(userID))
	}
	err := changes.RunInTx(ctx, func(ctx context.Context, tx rosterstore.Store) error {
		if err := tx.InsertVersion(ctx, &version); err != nil {
			return err
		}
		if err := tx.InsertShifts(ctx, shifts); err != nil {
			return err
		}
		return tx.InsertChanges(ctx, records)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
		copies    = make([]*recordingCopy, workers)
		pushes    = make([]*countingPush, workers)
	)
	for i := 0; i < workers; i++ {
		copies[i], pushes[i] = &recordingCopy{}, &countingPush{}
		svc, err := New(st, copies[i], pushes[i])
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Sweep(ctx)
			if err != nil {
				t.Errorf("sweep: %v", err)
				return
			}
			mu.Lock()
			processed += res.Processed
			mu.Unlock()
		}()
	}
	wg.Wait()

	if processed != len(records) {
		t.Fatalf("processed %d changes across sweeps, want %d", processed, len(records))
	}
	pending, err := changes.PendingChanges(ctx, time.Time{})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("%d changes left unclaimed", len(pending))
	}

	seen := make(map[string]int)
	sent := 0
	for i := range copies {
		for _, req := range copies[i].requests {
			for _, sh := range req.NewShifts {
				seen[sh.Date]++
			}
		}
		sent += pushes[i].sent
	}
	if len(seen) != len(dates) {
		t.Fatalf("notified %d distinct shifts, want %d", len(seen), len(dates))
	}
	for date, n := range seen {
		if n != 1 {
			t.Errorf("shift on %s notified %d times", date, n)
		}
	}
	if got := len(st.Log()); got != sent {
		t.Errorf("log has %d entries for %d pushes", got, sent)
	}
}
