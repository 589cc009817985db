// Package booking implements the coordinator that mediates between the
// presentation layer, the conflict engine, and the reservation store. It
// owns the live view: an in-memory snapshot of all reservations rebuilt
// wholesale from the store on every change notification, never patched
// field by field.
package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/internal/conflict"
	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

const (
	refreshRetryBase = time.Second
	refreshRetryMax  = 30 * time.Second
)

// Coordinator drives one client's view of the shared reservation state.
// Book and Cancel run the conflict precheck against the current view; the
// store remains the final arbiter when views are stale. Refreshes are
// serialized on a single goroutine, so the view only ever moves between
// consistent snapshots.
type Coordinator struct {
	store     storage.Store
	resources []core.Resource

	mu        sync.RWMutex
	view      []core.Reservation
	observers map[int]func()
	nextObs   int

	sub       storage.Subscription
	refreshCh chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	started   bool
	closeOnce sync.Once

	retryMu    sync.Mutex
	retryDelay time.Duration
	retryTimer *time.Timer
}

func New(store storage.Store, resources []core.Resource) *Coordinator {
	if len(resources) == 0 {
		resources = core.DefaultResources
	}
	return &Coordinator{
		store:     store,
		resources: resources,
		observers: make(map[int]func()),
		refreshCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start begins tracking store changes and performs the initial full
// fetch. The subscription is registered first so a mutation landing
// between the two is not missed; the pending notification it leaves
// behind costs one redundant refresh at most. Start fails if the first
// fetch fails; after that the coordinator is synced and stays available
// on its last-known view even when later refreshes fail.
func (c *Coordinator) Start(ctx context.Context) error {
	sub := c.store.Subscribe(c.trigger)
	if err := c.Refresh(ctx); err != nil {
		sub.Cancel()
		c.resetRetry()
		return err
	}
	c.sub = sub
	c.started = true
	go c.run()
	return nil
}

// Close releases the store subscription and stops the refresh loop. No
// observer fires after Close returns.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Cancel()
		}
		c.retryMu.Lock()
		if c.retryTimer != nil {
			c.retryTimer.Stop()
		}
		c.retryMu.Unlock()
		close(c.done)
		if c.started {
			<-c.stopped
		}
	})
}

// Resources returns the closed resource set this coordinator books
// against.
func (c *Coordinator) Resources() []core.Resource {
	out := make([]core.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Reservations returns a copy of the current live view.
func (c *Coordinator) Reservations() []core.Reservation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Reservation, len(c.view))
	copy(out, c.view)
	return out
}

// OnViewChanged registers fn to run after every live view replacement.
// Observers only read; the returned func deregisters.
func (c *Coordinator) OnViewChanged(fn func()) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Book admits candidate against the current view and, if admitted,
// inserts it. The ensuing change notification refreshes the view; no
// optimistic local update is made. A store-side conflict after a passing
// precheck is the cross-client race and surfaces as a ConflictError with
// Precheck false.
func (c *Coordinator) Book(ctx context.Context, resource core.Resource, owner string, start, end time.Time) (core.Reservation, error) {
	candidate := core.Reservation{
		Resource: resource,
		Owner:    owner,
		Start:    start,
		End:      end,
	}
	if err := conflict.Admit(candidate, c.Reservations(), c.resources); err != nil {
		return core.Reservation{}, err
	}
	inserted, err := c.store.Insert(ctx, candidate)
	if err != nil {
		return core.Reservation{}, err
	}
	return inserted, nil
}

// Cancel removes the reservation with the given id if requester owns it.
// The lookup runs against the live view, so a reservation this client has
// not yet observed reports ErrNotFound until the next refresh.
func (c *Coordinator) Cancel(ctx context.Context, id, requester string) error {
	target, ok := c.lookup(id)
	if !ok {
		return core.ErrNotFound
	}
	if !conflict.CanCancel(target, requester) {
		return core.ErrForbidden
	}
	return c.store.Delete(ctx, id)
}

// Refresh replaces the live view with a fresh full read. On failure the
// previous view is retained and a retry is scheduled with bounded
// backoff; stale-but-available beats empty.
func (c *Coordinator) Refresh(ctx context.Context) error {
	rows, err := c.store.List(ctx)
	if err != nil {
		c.scheduleRetry()
		return err
	}
	c.resetRetry()

	c.mu.Lock()
	c.view = rows
	fns := make([]func(), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return nil
}

func (c *Coordinator) lookup(id string) (core.Reservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.view {
		if r.ID == id {
			return r, true
		}
	}
	return core.Reservation{}, false
}

// trigger coalesces change notifications into at most one pending
// refresh. The notification payload is ignored; it is only a signal that
// the store moved.
func (c *Coordinator) trigger() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.done:
			return
		case <-c.refreshCh:
			if err := c.Refresh(context.Background()); err != nil {
				log.Printf("booking: refresh failed, keeping stale view: %v", err)
			}
		}
	}
}

func (c *Coordinator) scheduleRetry() {
	c.retryMu.Lock()
	defer c.retryMu.Unlock()
	if c.retryDelay == 0 {
		c.retryDelay = refreshRetryBase
	} else if c.retryDelay < refreshRetryMax {
		c.retryDelay *= 2
		if c.retryDelay > refreshRetryMax {
			c.retryDelay = refreshRetryMax
		}
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.retryDelay, c.trigger)
}

func (c *Coordinator) resetRetry() {
	c.retryMu.Lock()
	defer c.retryMu.Unlock()
	c.retryDelay = 0
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}
