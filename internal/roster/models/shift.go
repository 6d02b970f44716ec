package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "rostersync/pkg/domain-errors"
)

// CanonicalShift is one normalized schedule entry before identity resolution.
type CanonicalShift struct {
	EmployeeName string
	Role         string
	Date         Date
	StartTime    TimeOfDay
	EndTime      TimeOfDay
	BreakMinutes *int
	Notes        string
}

// NewCanonicalShift validates and normalizes raw normalizer fields.
func NewCanonicalShift(name, role, date, start, end string, breakMinutes *int, notes string) (CanonicalShift, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CanonicalShift{}, dErrors.New(dErrors.CodeInvariantViolation, "employee name is required")
	}
	d, err := ParseDate(date)
	if err != nil {
		return CanonicalShift{}, err
	}
	st, err := ParseTimeOfDay(start)
	if err != nil {
		return CanonicalShift{}, err
	}
	et, err := ParseTimeOfDay(end)
	if err != nil {
		return CanonicalShift{}, err
	}
	if breakMinutes != nil && *breakMinutes < 0 {
		return CanonicalShift{}, dErrors.New(dErrors.CodeInvariantViolation, "break minutes must not be negative")
	}
	return CanonicalShift{
		EmployeeName: name,
		Role:         strings.TrimSpace(role),
		Date:         d,
		StartTime:    st,
		EndTime:      et,
		BreakMinutes: breakMinutes,
		Notes:        strings.TrimSpace(notes),
	}, nil
}

// Break returns the break length, 0 when unspecified.
func (s CanonicalShift) Break() int {
	if s.BreakMinutes == nil {
		return 0
	}
	return *s.BreakMinutes
}

// MatchResult pairs a shift with the identity it resolved to. IdentityID is
// nil and Confidence 0 when no candidate cleared the threshold.
type MatchResult struct {
	Shift      CanonicalShift
	IdentityID *uuid.UUID
	Confidence float64
}

func (m MatchResult) Matched() bool {
	return m.IdentityID != nil
}

// ResolvedShift is a MatchResult persisted as part of a roster version.
type ResolvedShift struct {
	ID              uuid.UUID
	RosterVersionID uuid.UUID
	IdentityID      *uuid.UUID
	OriginalName    string
	Role            string
	Date            Date
	StartTime       TimeOfDay
	EndTime         TimeOfDay
	BreakMinutes    int
	Notes           string
	Confidence      float64
	ManuallyMatched bool
}

// NewResolvedShift stamps a match result with a fresh shift id.
func NewResolvedShift(versionID uuid.UUID, m MatchResult) ResolvedShift {
	return ResolvedShift{
		ID:              uuid.New(),
		RosterVersionID: versionID,
		IdentityID:      m.IdentityID,
		OriginalName:    m.Shift.EmployeeName,
		Role:            m.Shift.Role,
		Date:            m.Shift.Date,
		StartTime:       m.Shift.StartTime,
		EndTime:         m.Shift.EndTime,
		BreakMinutes:    m.Shift.Break(),
		Notes:           m.Shift.Notes,
		Confidence:      m.Confidence,
	}
}

// SlotKey identifies a recurring shift slot across versions.
type SlotKey struct {
	IdentityID uuid.UUID
	Date       Date
}

// Slot returns the slot key, or false for unmatched shifts.
func (s ResolvedShift) Slot() (SlotKey, bool) {
	if s.IdentityID == nil {
		return SlotKey{}, false
	}
	return SlotKey{IdentityID: *s.IdentityID, Date: s.Date}, true
}

// SameTimes reports whether start, end, break and role are identical.
func (s ResolvedShift) SameTimes(o ResolvedShift) bool {
	return s.StartTime == o.StartTime &&
		s.EndTime == o.EndTime &&
		s.BreakMinutes == o.BreakMinutes &&
		s.Role == o.Role
}
