package batch

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostersync/internal/notification/models"
	rostermodels "rostersync/internal/roster/models"
)

func TestBuild(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u1, u2 := uuid.New(), uuid.New()
	claimedAt := now.Add(-time.Minute)

	changes := []rostermodels.ShiftChange{
		{ID: uuid.New(), UserID: u1, CreatedAt: now.Add(-2 * time.Minute)},
		{ID: uuid.New(), UserID: u1, CreatedAt: now.Add(-9 * time.Minute)},
		{ID: uuid.New(), UserID: u2, CreatedAt: now.Add(-time.Minute)},
		{ID: uuid.New(), UserID: u2, CreatedAt: now.Add(-11 * time.Minute)},
		{ID: uuid.New(), UserID: u2, CreatedAt: now, NotifiedAt: &claimedAt},
	}

	got := Build(changes, 10*time.Minute, now)

	require.Len(t, got, 2)
	assert.Equal(t, []rostermodels.ShiftChange{changes[0], changes[1]}, got[u1])
	assert.Equal(t, []rostermodels.ShiftChange{changes[2]}, got[u2])
}

func TestBuildEmpty(t *testing.T) {
	assert.Empty(t, Build(nil, time.Minute, time.Now()))
}

func TestUsersIsStable(t *testing.T) {
	batches := map[uuid.UUID][]rostermodels.ShiftChange{
		uuid.New(): nil, uuid.New(): nil, uuid.New(): nil,
	}
	first := Users(batches)
	for range 5 {
		assert.Equal(t, first, Users(batches))
	}
}

func TestSummarize(t *testing.T) {
	oldID, newID, otherID, missing := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	shifts := map[uuid.UUID]rostermodels.ResolvedShift{
		oldID:   {ID: oldID, Date: "2024-01-02", StartTime: "09:00", EndTime: "17:00", Role: "Bar"},
		newID:   {ID: newID, Date: "2024-01-02", StartTime: "09:00", EndTime: "18:00", Role: "Bar"},
		otherID: {ID: otherID, Date: "2024-01-01", StartTime: "07:00", EndTime: "11:00"},
	}
	changes := []rostermodels.ShiftChange{
		{ChangeType: rostermodels.ChangeChanged, OldShiftID: &oldID, NewShiftID: &newID},
		{ChangeType: rostermodels.ChangeInserted, NewShiftID: &otherID},
		{ChangeType: rostermodels.ChangeRemoved, OldShiftID: &missing},
	}

	oldShifts, newShifts := Summarize(changes, shifts)

	wantOld := []models.ShiftSummary{{Date: "2024-01-02", Start: "09:00", End: "17:00", Role: "Bar"}}
	wantNew := []models.ShiftSummary{
		{Date: "2024-01-01", Start: "07:00", End: "11:00"},
		{Date: "2024-01-02", Start: "09:00", End: "18:00", Role: "Bar"},
	}
	if diff := cmp.Diff(wantOld, oldShifts); diff != "" {
		t.Errorf("old shifts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantNew, newShifts); diff != "" {
		t.Errorf("new shifts mismatch (-want +got):\n%s", diff)
	}
}

func TestShiftRefsDedupes(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	refs := ShiftRefs([]rostermodels.ShiftChange{
		{OldShiftID: &a, NewShiftID: &b},
		{NewShiftID: &b},
	})
	assert.Equal(t, []uuid.UUID{a, b}, refs)
}
