// Package conflict implements the booking admission check: pure functions
// over an in-memory reservation set, no I/O. The check is a fast-path
// precheck only; the store's own overlap constraint is the final arbiter
// when two clients race.
package conflict

import (
	"strings"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

// Admit decides whether candidate may be booked given the caller's current
// view of existing reservations. existing need not be sorted. Validation
// runs before any overlap test: a zero-length or inverted interval is
// rejected as invalid, never as overlapping.
func Admit(candidate core.Reservation, existing []core.Reservation, resources []core.Resource) error {
	if !candidate.Start.Before(candidate.End) {
		return core.ErrInvalidInterval
	}
	if strings.TrimSpace(candidate.Owner) == "" {
		return core.ErrEmptyOwner
	}
	if !validResource(candidate.Resource, resources) {
		return core.ErrUnknownResource
	}
	for _, other := range existing {
		if other.Resource != candidate.Resource {
			continue
		}
		if candidate.Overlaps(other) {
			return &core.ConflictError{Conflicting: other, Precheck: true}
		}
	}
	return nil
}

// CanCancel reports whether requester may cancel r. Owner comparison is
// exact: case- and whitespace-sensitive. This is a policy over bare
// strings, not an authentication check, and the strictness is a known
// usability gap left undisturbed.
func CanCancel(r core.Reservation, requester string) bool {
	return requester != "" && r.Owner == requester
}

func validResource(r core.Resource, resources []core.Resource) bool {
	for _, known := range resources {
		if known == r {
			return true
		}
	}
	return false
}
