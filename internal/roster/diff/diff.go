// Package diff classifies every shift of a roster version against the
// version before it.
package diff

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"rostersync/internal/roster/models"
)

// Result is the outcome of comparing two versions. Changes carries one
// record per user-attributable insert, change or removal; unmatched shifts
// only show up in the counts.
type Result struct {
	Changes   []models.ShiftChange
	Inserted  int
	Changed   int
	Unchanged int
	Removed   int
}

// Summary is the count part of a Result.
type Summary struct {
	Inserted  int `json:"inserted"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

func (r Result) Summary() Summary {
	return Summary{Inserted: r.Inserted, Changed: r.Changed, Unchanged: r.Unchanged, Removed: r.Removed}
}

// Compute diffs current against previous. A nil previous means current is
// the first version and every shift is inserted.
//
// Shifts are compared per (identity, date) slot. When a slot holds more
// than one shift, identical shifts pair first, then the rest pair in
// (start, end) order; whatever is left over on either side is inserted or
// removed.
func Compute(previous *models.RosterVersion, current models.RosterVersion) Result {
	var res Result
	b := builder{venueID: current.VenueID, versionID: current.ID, res: &res}

	if previous == nil {
		for _, s := range current.Shifts {
			b.inserted(s)
		}
		return res
	}

	prevSlots, prevOrder, prevUnmatched := index(previous.Shifts)
	curSlots, curOrder, curUnmatched := index(current.Shifts)

	res.Inserted += curUnmatched
	res.Removed += prevUnmatched

	for _, key := range curOrder {
		pairSlot(&b, prevSlots[key], curSlots[key])
	}
	for _, key := range prevOrder {
		if _, ok := curSlots[key]; ok {
			continue
		}
		for _, s := range prevSlots[key] {
			b.removed(s)
		}
	}
	return res
}

// index groups matched shifts by slot, keeping first-seen slot order so the
// emitted change list is stable for a given input.
func index(shifts []models.ResolvedShift) (map[models.SlotKey][]models.ResolvedShift, []models.SlotKey, int) {
	slots := make(map[models.SlotKey][]models.ResolvedShift, len(shifts))
	var order []models.SlotKey
	unmatched := 0
	for _, s := range shifts {
		key, ok := s.Slot()
		if !ok {
			unmatched++
			continue
		}
		if _, seen := slots[key]; !seen {
			order = append(order, key)
		}
		slots[key] = append(slots[key], s)
	}
	for _, key := range order {
		slices.SortStableFunc(slots[key], byClock)
	}
	return slots, order, unmatched
}

func byClock(a, b models.ResolvedShift) int {
	return cmp.Or(
		cmp.Compare(a.StartTime, b.StartTime),
		cmp.Compare(a.EndTime, b.EndTime),
		cmp.Compare(a.BreakMinutes, b.BreakMinutes),
		cmp.Compare(a.Role, b.Role),
	)
}

func pairSlot(b *builder, prev, cur []models.ResolvedShift) {
	prevUsed := make([]bool, len(prev))
	curUsed := make([]bool, len(cur))

	for i, c := range cur {
		for j, p := range prev {
			if !prevUsed[j] && c.SameTimes(p) {
				prevUsed[j], curUsed[i] = true, true
				b.res.Unchanged++
				break
			}
		}
	}

	j := 0
	for i, c := range cur {
		if curUsed[i] {
			continue
		}
		for j < len(prev) && prevUsed[j] {
			j++
		}
		if j == len(prev) {
			b.inserted(c)
			continue
		}
		prevUsed[j] = true
		b.changed(prev[j], c)
	}
	for j, p := range prev {
		if !prevUsed[j] {
			b.removed(p)
		}
	}
}

type builder struct {
	venueID   uuid.UUID
	versionID uuid.UUID
	res       *Result
}

func (b *builder) inserted(s models.ResolvedShift) {
	b.res.Inserted++
	if s.IdentityID == nil {
		return
	}
	b.emit(*s.IdentityID, models.ChangeInserted, nil, &s.ID)
}

func (b *builder) changed(old, cur models.ResolvedShift) {
	b.res.Changed++
	b.emit(*cur.IdentityID, models.ChangeChanged, &old.ID, &cur.ID)
}

func (b *builder) removed(s models.ResolvedShift) {
	b.res.Removed++
	b.emit(*s.IdentityID, models.ChangeRemoved, &s.ID, nil)
}

func (b *builder) emit(userID uuid.UUID, kind models.ChangeType, oldID, newID *uuid.UUID) {
	b.res.Changes = append(b.res.Changes, models.ShiftChange{
		VenueID:         b.venueID,
		UserID:          userID,
		RosterVersionID: b.versionID,
		ChangeType:      kind,
		OldShiftID:      oldID,
		NewShiftID:      newID,
	})
}
