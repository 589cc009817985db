// Package storage defines the reservation store boundary: list, insert,
// delete, and a coarse change-notification primitive. The durable
// implementation lives in storage/sqlite; InMemory backs tests and the
// notification fan-out behaves the same in both.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

// Subscription is a registered change listener. Cancel releases it; after
// Cancel returns no further notifications fire.
type Subscription interface {
	Cancel()
}

// Store is the durable reservation store. Insert assigns the ID and is
// the final arbiter of the no-overlap invariant: a row that would overlap
// an existing one on the same resource fails with core.ConflictError even
// if the caller's precheck passed. Subscribe registers a payloadless
// listener fired after every successful Insert or Delete, including this
// process's own mutations.
type Store interface {
	List(ctx context.Context) ([]core.Reservation, error)
	Insert(ctx context.Context, r core.Reservation) (core.Reservation, error)
	Delete(ctx context.Context, id string) error
	Subscribe(onChange func()) Subscription
	Close() error
}

// InMemory is a map-backed Store for tests and single-process use.
type InMemory struct {
	mu           sync.Mutex
	reservations map[string]core.Reservation
	listeners    map[int]func()
	nextListener int
}

func NewInMemory() *InMemory {
	return &InMemory{
		reservations: make(map[string]core.Reservation),
		listeners:    make(map[int]func()),
	}
}

func (m *InMemory) List(ctx context.Context) ([]core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func (m *InMemory) Insert(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	m.mu.Lock()
	if !r.Start.Before(r.End) {
		m.mu.Unlock()
		return core.Reservation{}, core.ErrInvalidInterval
	}
	if strings.TrimSpace(r.Owner) == "" {
		m.mu.Unlock()
		return core.Reservation{}, core.ErrEmptyOwner
	}
	for _, other := range m.reservations {
		if other.Resource == r.Resource && r.Overlaps(other) {
			m.mu.Unlock()
			return core.Reservation{}, &core.ConflictError{Conflicting: other}
		}
	}
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.reservations[r.ID] = r
	m.mu.Unlock()

	m.notify()
	return r, nil
}

// Get looks up one reservation by ID.
func (m *InMemory) Get(ctx context.Context, id string) (core.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return core.Reservation{}, core.ErrNotFound
	}
	return r, nil
}

func (m *InMemory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.reservations[id]; !ok {
		m.mu.Unlock()
		return core.ErrNotFound
	}
	delete(m.reservations, id)
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *InMemory) Subscribe(onChange func()) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = onChange
	return &memSubscription{store: m, id: id}
}

func (m *InMemory) Close() error { return nil }

func (m *InMemory) notify() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type memSubscription struct {
	store *InMemory
	id    int
	once  sync.Once
}

func (s *memSubscription) Cancel() {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.listeners, s.id)
		s.store.mu.Unlock()
	})
}
