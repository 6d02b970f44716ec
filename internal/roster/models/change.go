package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a shift's transition between two versions.
type ChangeType string

const (
	ChangeInserted  ChangeType = "inserted"
	ChangeChanged   ChangeType = "changed"
	ChangeRemoved   ChangeType = "removed"
	ChangeUnchanged ChangeType = "unchanged"
)

func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeInserted, ChangeChanged, ChangeRemoved:
		return true
	}
	return false
}

// ShiftChange records one user-visible transition. NotifiedAt is nil until a
// notification sweep claims the record; once set it is terminal.
type ShiftChange struct {
	ID              uuid.UUID
	VenueID         uuid.UUID
	UserID          uuid.UUID
	RosterVersionID uuid.UUID
	ChangeType      ChangeType
	OldShiftID      *uuid.UUID
	NewShiftID      *uuid.UUID
	CreatedAt       time.Time
	NotifiedAt      *time.Time
}

// Claimed reports whether a sweep already took the record.
func (c ShiftChange) Claimed() bool {
	return c.NotifiedAt != nil
}

// ShiftRefs returns the non-nil shift ids the change points at.
func (c ShiftChange) ShiftRefs() []uuid.UUID {
	refs := make([]uuid.UUID, 0, 2)
	if c.OldShiftID != nil {
		refs = append(refs, *c.OldShiftID)
	}
	if c.NewShiftID != nil {
		refs = append(refs, *c.NewShiftID)
	}
	return refs
}
