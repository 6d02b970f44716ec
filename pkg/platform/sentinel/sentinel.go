package sentinel

import "errors"

// Sentinel errors for storage and infrastructure facts. Stores return these
// (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: the row does not exist
//   - ErrConflict: a uniqueness constraint rejected the write (version number taken)
//   - ErrUnavailable: an upstream is short-circuited or cannot be reached
//
// Validation failures belong in pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
