package models

import (
	"time"

	"github.com/google/uuid"
)

// RosterStatus tracks a version through review.
type RosterStatus string

const (
	RosterStatusDraft     RosterStatus = "draft"
	RosterStatusPublished RosterStatus = "published"
)

// RosterVersion is one immutable numbered snapshot of a venue's week.
// Versions for a (VenueID, WeekStart) run 1, 2, 3, ... with no gaps.
type RosterVersion struct {
	ID            uuid.UUID
	VenueID       uuid.UUID
	WeekStart     Date
	Version       int
	Status        RosterStatus
	SourceFileURL string
	UploadedBy    string
	ContentHash   string
	Totals        Totals
	CreatedAt     time.Time
	Shifts        []ResolvedShift
}

// Totals summarises resolution outcomes for a version.
type Totals struct {
	TotalShifts     int
	MatchedShifts   int
	UnmatchedShifts int
}

// ComputeTotals counts matched and unmatched shifts.
func ComputeTotals(shifts []ResolvedShift) Totals {
	t := Totals{TotalShifts: len(shifts)}
	for _, s := range shifts {
		if s.IdentityID != nil {
			t.MatchedShifts++
		}
	}
	t.UnmatchedShifts = t.TotalShifts - t.MatchedShifts
	return t
}

// WeekKey identifies the version sequence a roster belongs to.
type WeekKey struct {
	VenueID   uuid.UUID
	WeekStart Date
}

func (v RosterVersion) Key() WeekKey {
	return WeekKey{VenueID: v.VenueID, WeekStart: v.WeekStart}
}
