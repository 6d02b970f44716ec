package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rostersync/internal/roster/models"
)

type DiffSuite struct {
	suite.Suite
	venue uuid.UUID
	u1    uuid.UUID
	u2    uuid.UUID
}

func TestDiffSuite(t *testing.T) {
	suite.Run(t, new(DiffSuite))
}

func (s *DiffSuite) SetupTest() {
	s.venue = uuid.New()
	s.u1 = uuid.New()
	s.u2 = uuid.New()
}

func (s *DiffSuite) version(n int, shifts ...models.ResolvedShift) models.RosterVersion {
	v := models.RosterVersion{
		ID:        uuid.New(),
		VenueID:   s.venue,
		WeekStart: "2024-01-01",
		Version:   n,
	}
	for _, sh := range shifts {
		sh.RosterVersionID = v.ID
		v.Shifts = append(v.Shifts, sh)
	}
	return v
}

func shift(user *uuid.UUID, date models.Date, start, end models.TimeOfDay) models.ResolvedShift {
	return models.ResolvedShift{
		ID:         uuid.New(),
		IdentityID: user,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
	}
}

func (s *DiffSuite) summary(r Result) Summary {
	return r.Summary()
}

func (s *DiffSuite) TestFirstVersion() {
	s.Run("every shift is inserted", func() {
		cur := s.version(1,
			shift(&s.u1, "2024-01-01", "09:00", "17:00"),
			shift(&s.u1, "2024-01-02", "09:00", "17:00"),
			shift(&s.u2, "2024-01-01", "12:00", "20:00"),
			shift(&s.u2, "2024-01-03", "12:00", "20:00"),
			shift(nil, "2024-01-04", "08:00", "12:00"),
		)

		res := Compute(nil, cur)

		s.Equal(Summary{Inserted: 5}, s.summary(res))
		s.Len(res.Changes, 4, "unmatched shifts are counted but carry no user")
		for _, c := range res.Changes {
			s.Equal(models.ChangeInserted, c.ChangeType)
			s.Nil(c.OldShiftID)
			s.NotNil(c.NewShiftID)
			s.Equal(cur.ID, c.RosterVersionID)
		}
	})
}

func (s *DiffSuite) TestUnchangedShift() {
	prev := s.version(1, shift(&s.u1, "2024-01-01", "09:00", "17:00"))
	cur := s.version(2, shift(&s.u1, "2024-01-01", "09:00", "17:00"))

	res := Compute(&prev, cur)

	s.Equal(Summary{Unchanged: 1}, s.summary(res))
	s.Empty(res.Changes)
}

func (s *DiffSuite) TestChangedEndTime() {
	old := shift(&s.u1, "2024-01-01", "09:00", "17:00")
	updated := shift(&s.u1, "2024-01-01", "09:00", "18:00")
	prev := s.version(1, old)
	cur := s.version(2, updated)

	res := Compute(&prev, cur)

	s.Equal(Summary{Changed: 1}, s.summary(res))
	want := []models.ShiftChange{{
		VenueID:         s.venue,
		UserID:          s.u1,
		RosterVersionID: cur.ID,
		ChangeType:      models.ChangeChanged,
		OldShiftID:      &old.ID,
		NewShiftID:      &updated.ID,
	}}
	if diff := cmp.Diff(want, res.Changes); diff != "" {
		s.Failf("unexpected changes", "(-want +got):\n%s", diff)
	}
}

func (s *DiffSuite) TestBreakAndRoleAreCompared() {
	s.Run("break minutes", func() {
		prev := s.version(1, shift(&s.u1, "2024-01-01", "09:00", "17:00"))
		next := shift(&s.u1, "2024-01-01", "09:00", "17:00")
		next.BreakMinutes = 30
		cur := s.version(2, next)

		s.Equal(Summary{Changed: 1}, s.summary(Compute(&prev, cur)))
	})

	s.Run("role", func() {
		before := shift(&s.u1, "2024-01-01", "09:00", "17:00")
		before.Role = "Bar"
		after := before
		after.ID = uuid.New()
		after.Role = "Floor"
		prev := s.version(1, before)
		cur := s.version(2, after)

		s.Equal(Summary{Changed: 1}, s.summary(Compute(&prev, cur)))
	})
}

func (s *DiffSuite) TestRemovedShift() {
	gone := shift(&s.u2, "2024-01-02", "10:00", "14:00")
	prev := s.version(1, shift(&s.u1, "2024-01-01", "09:00", "17:00"), gone)
	cur := s.version(2, shift(&s.u1, "2024-01-01", "09:00", "17:00"))

	res := Compute(&prev, cur)

	s.Equal(Summary{Unchanged: 1, Removed: 1}, s.summary(res))
	s.Require().Len(res.Changes, 1)
	s.Equal(models.ChangeRemoved, res.Changes[0].ChangeType)
	s.Equal(s.u2, res.Changes[0].UserID)
	s.Equal(&gone.ID, res.Changes[0].OldShiftID)
	s.Nil(res.Changes[0].NewShiftID)
}

func (s *DiffSuite) TestInsertedShift() {
	prev := s.version(1, shift(&s.u1, "2024-01-01", "09:00", "17:00"))
	cur := s.version(2,
		shift(&s.u1, "2024-01-01", "09:00", "17:00"),
		shift(&s.u1, "2024-01-02", "09:00", "17:00"),
	)

	res := Compute(&prev, cur)

	s.Equal(Summary{Inserted: 1, Unchanged: 1}, s.summary(res))
	s.Require().Len(res.Changes, 1)
	s.Equal(models.ChangeInserted, res.Changes[0].ChangeType)
}

func (s *DiffSuite) TestUnmatchedShiftsAreCountedBySide() {
	prev := s.version(1, shift(nil, "2024-01-01", "09:00", "17:00"))
	cur := s.version(2, shift(nil, "2024-01-01", "09:00", "17:00"), shift(nil, "2024-01-02", "09:00", "17:00"))

	res := Compute(&prev, cur)

	s.Equal(Summary{Inserted: 2, Removed: 1}, s.summary(res))
	s.Empty(res.Changes)
}

func (s *DiffSuite) TestDoubleBooking() {
	s.Run("identical shift pairs before clock order", func() {
		lunch := shift(&s.u1, "2024-01-01", "12:00", "16:00")
		prev := s.version(1, lunch)
		cur := s.version(2,
			shift(&s.u1, "2024-01-01", "08:00", "10:00"),
			shift(&s.u1, "2024-01-01", "12:00", "16:00"),
		)

		res := Compute(&prev, cur)

		s.Equal(Summary{Inserted: 1, Unchanged: 1}, s.summary(res))
	})

	s.Run("remaining shifts pair earliest first", func() {
		early := shift(&s.u1, "2024-01-01", "06:00", "10:00")
		late := shift(&s.u1, "2024-01-01", "18:00", "22:00")
		prev := s.version(1, late, early)
		earlyNew := shift(&s.u1, "2024-01-01", "07:00", "10:00")
		cur := s.version(2, earlyNew)

		res := Compute(&prev, cur)

		s.Equal(Summary{Changed: 1, Removed: 1}, s.summary(res))
		byType := map[models.ChangeType]models.ShiftChange{}
		for _, c := range res.Changes {
			byType[c.ChangeType] = c
		}
		s.Equal(&early.ID, byType[models.ChangeChanged].OldShiftID)
		s.Equal(&earlyNew.ID, byType[models.ChangeChanged].NewShiftID)
		s.Equal(&late.ID, byType[models.ChangeRemoved].OldShiftID)
	})

	s.Run("extra booking in current is inserted", func() {
		prev := s.version(1, shift(&s.u1, "2024-01-01", "06:00", "10:00"))
		cur := s.version(2,
			shift(&s.u1, "2024-01-01", "06:00", "11:00"),
			shift(&s.u1, "2024-01-01", "18:00", "22:00"),
		)

		res := Compute(&prev, cur)

		s.Equal(Summary{Changed: 1, Inserted: 1}, s.summary(res))
		s.Len(res.Changes, 2)
	})
}

func (s *DiffSuite) TestOrderIndependence() {
	a := shift(&s.u1, "2024-01-01", "09:00", "17:00")
	b := shift(&s.u2, "2024-01-01", "09:00", "17:00")
	c := shift(&s.u2, "2024-01-02", "09:00", "17:00")
	prev := s.version(1, a, b, c)

	a2, b2 := a, b
	a2.ID, b2.ID = uuid.New(), uuid.New()
	a2.EndTime = "18:00"

	forward := Compute(&prev, s.version(2, a2, b2))
	backward := Compute(&prev, s.version(2, b2, a2))

	s.Equal(forward.Summary(), backward.Summary())
	sortChanges := cmpopts.SortSlices(func(x, y models.ShiftChange) bool {
		return string(x.ChangeType)+x.UserID.String() < string(y.ChangeType)+y.UserID.String()
	})
	ignoreVersion := cmpopts.IgnoreFields(models.ShiftChange{}, "RosterVersionID")
	if diff := cmp.Diff(forward.Changes, backward.Changes, sortChanges, ignoreVersion); diff != "" {
		s.Failf("changes depend on shift order", "(-forward +backward):\n%s", diff)
	}
}
