package core

import "time"

type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// Resource identifies one bookable machine. The set of valid resources is
// closed and fixed at server startup; see config.Config.Resources.
type Resource string

// DefaultResources is the machine set used when no config overrides it.
var DefaultResources = []Resource{"mill", "lathe", "laser", "printer"}

// Reservation is one live booking of a resource for a half-open interval
// [Start, End). A reservation is either absent or live; there is no
// tentative state. Cancelling deletes the row.
type Reservation struct {
	ID        string    `json:"id"`
	Resource  Resource  `json:"resource"`
	Owner     string    `json:"owner"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	CreatedAt time.Time `json:"created_at"`
}

// Overlaps reports whether r and other intersect under half-open
// semantics. Back-to-back reservations (r.End == other.Start) do not
// overlap.
func (r Reservation) Overlaps(other Reservation) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Event wraps a reservation state change for broadcast to connected
// clients. Consumers treat it as a coarse "something changed" trigger;
// the payload is advisory only.
type Event struct {
	Type        EventType   `json:"type"`
	Reservation Reservation `json:"reservation"`
	CreatedAt   time.Time   `json:"created_at"`
}
