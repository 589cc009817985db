package core

import (
	"errors"
	"fmt"
)

// Booking error taxonomy. Every failure of Book/Cancel surfaces as one of
// these so callers can map it to a status code or a human-readable reason.
var (
	ErrInvalidInterval  = errors.New("invalid interval: start must be before end")
	ErrEmptyOwner       = errors.New("owner required")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrNotFound         = errors.New("reservation not found")
	ErrForbidden        = errors.New("owner mismatch")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ConflictError reports that a candidate interval intersects an existing
// reservation. Precheck indicates a client-local rejection against the
// live view; otherwise the store's own overlap check fired (the race case
// where two clients passed their prechecks concurrently).
type ConflictError struct {
	Conflicting Reservation
	Precheck    bool
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("interval overlaps reservation %s (%s, owned by %q)",
		e.Conflicting.ID, e.Conflicting.Resource, e.Conflicting.Owner)
}
