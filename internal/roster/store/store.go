// Package store persists roster versions, their resolved shifts and the
// change records produced by diffing consecutive versions.
package store

import (
	"context"

	"rostersync/internal/roster/models"
)

// Store is the write path used inside an ingestion transaction.
type Store interface {
	// LatestVersion returns the highest version for key with its shifts, or
	// sentinel.ErrNotFound.
	LatestVersion(ctx context.Context, key models.WeekKey) (*models.RosterVersion, error)
	// InsertVersion returns sentinel.ErrConflict when the version number is taken.
	InsertVersion(ctx context.Context, v *models.RosterVersion) error
	InsertShifts(ctx context.Context, shifts []models.ResolvedShift) error
	InsertChanges(ctx context.Context, changes []models.ShiftChange) error
}
