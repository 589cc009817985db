// Package httpapi exposes the reservation store to remote clients: list,
// book, cancel, plus the resource catalogue. Every admitted mutation is
// broadcast through the attached Broadcaster so connected clients can
// re-fetch.
package httpapi

import (
	"context"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

// ReservationStore is the subset of store methods the handlers need.
type ReservationStore interface {
	List(ctx context.Context) ([]core.Reservation, error)
	Insert(ctx context.Context, r core.Reservation) (core.Reservation, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (core.Reservation, error)
}

type Broadcaster interface {
	Broadcast(event any)
}

type Service struct {
	store     ReservationStore
	bus       Broadcaster
	resources []core.Resource
}

func NewService(store ReservationStore, resources []core.Resource) *Service {
	if len(resources) == 0 {
		resources = core.DefaultResources
	}
	return &Service{store: store, resources: resources}
}

func (s *Service) WithBroadcaster(b Broadcaster) *Service {
	s.bus = b
	return s
}

func (s *Service) broadcast(event core.Event) {
	if s.bus != nil {
		s.bus.Broadcast(event)
	}
}
