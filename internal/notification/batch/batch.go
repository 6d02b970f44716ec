// Package batch groups pending change records into per-user notification
// batches and renders the shifts they point at.
package batch

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"rostersync/internal/notification/models"
	rostermodels "rostersync/internal/roster/models"
)

// Build keeps unclaimed changes created within window of now and groups
// them by user. Each user's changes keep their input order.
func Build(changes []rostermodels.ShiftChange, window time.Duration, now time.Time) map[uuid.UUID][]rostermodels.ShiftChange {
	cutoff := now.Add(-window)
	out := make(map[uuid.UUID][]rostermodels.ShiftChange)
	for _, c := range changes {
		if c.Claimed() || c.CreatedAt.Before(cutoff) {
			continue
		}
		out[c.UserID] = append(out[c.UserID], c)
	}
	return out
}

// Users returns the batch keys in a stable order.
func Users(batches map[uuid.UUID][]rostermodels.ShiftChange) []uuid.UUID {
	users := make([]uuid.UUID, 0, len(batches))
	for id := range batches {
		users = append(users, id)
	}
	slices.SortFunc(users, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return users
}

// ShiftRefs collects the distinct shift ids referenced by changes.
func ShiftRefs(changes []rostermodels.ShiftChange) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var refs []uuid.UUID
	for _, c := range changes {
		for _, id := range c.ShiftRefs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			refs = append(refs, id)
		}
	}
	return refs
}

// Summarize resolves each change's old and new shift into summaries. Refs
// missing from shifts are skipped. Both lists are sorted by date and start.
func Summarize(changes []rostermodels.ShiftChange, shifts map[uuid.UUID]rostermodels.ResolvedShift) (oldShifts, newShifts []models.ShiftSummary) {
	for _, c := range changes {
		if c.OldShiftID != nil {
			if sh, ok := shifts[*c.OldShiftID]; ok {
				oldShifts = append(oldShifts, summary(sh))
			}
		}
		if c.NewShiftID != nil {
			if sh, ok := shifts[*c.NewShiftID]; ok {
				newShifts = append(newShifts, summary(sh))
			}
		}
	}
	slices.SortStableFunc(oldShifts, bySchedule)
	slices.SortStableFunc(newShifts, bySchedule)
	return oldShifts, newShifts
}

func summary(sh rostermodels.ResolvedShift) models.ShiftSummary {
	return models.ShiftSummary{
		Date:  sh.Date.String(),
		Start: sh.StartTime.String(),
		End:   sh.EndTime.String(),
		Role:  sh.Role,
	}
}

func bySchedule(a, b models.ShiftSummary) int {
	if a.Date != b.Date {
		if a.Date < b.Date {
			return -1
		}
		return 1
	}
	switch {
	case a.Start < b.Start:
		return -1
	case a.Start > b.Start:
		return 1
	}
	return 0
}
