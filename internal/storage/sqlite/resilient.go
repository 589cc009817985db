package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*ResilientStore)(nil)

// ResilientStore wraps every Store method with CircuitBreaker +
// RetryOnDBLock. When the breaker is open or lock retries are exhausted
// the failure surfaces as core.ErrStoreUnavailable so callers see the
// taxonomy, not driver internals. Domain errors (conflicts, not-found,
// validation) pass through untouched and never trip the breaker.
type ResilientStore struct {
	inner *Store
	cb    *CircuitBreaker
}

// NewResilient creates a ResilientStore with default circuit breaker settings
// (threshold=5, resetTimeout=30s).
func NewResilient(inner *Store) *ResilientStore {
	return &ResilientStore{inner: inner, cb: NewCircuitBreaker(5, 30*time.Second)}
}

// NewResilientWithBreaker creates a ResilientStore with a custom circuit breaker.
func NewResilientWithBreaker(inner *Store, cb *CircuitBreaker) *ResilientStore {
	return &ResilientStore{inner: inner, cb: cb}
}

// CircuitBreakerState returns the current state of the circuit breaker as a string.
func (r *ResilientStore) CircuitBreakerState() string {
	return r.cb.State().String()
}

func (r *ResilientStore) List(ctx context.Context) ([]core.Reservation, error) {
	var result []core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.List(ctx)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) Insert(ctx context.Context, res core.Reservation) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.Insert(ctx, res)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) Delete(ctx context.Context, id string) error {
	return r.execute(func() error {
		return r.inner.Delete(ctx, id)
	})
}

func (r *ResilientStore) Get(ctx context.Context, id string) (core.Reservation, error) {
	var result core.Reservation
	err := r.execute(func() error {
		var innerErr error
		result, innerErr = r.inner.Get(ctx, id)
		return innerErr
	})
	return result, err
}

func (r *ResilientStore) Subscribe(onChange func()) storage.Subscription {
	return r.inner.Subscribe(onChange)
}

func (r *ResilientStore) Close() error {
	return r.inner.Close()
}

func (r *ResilientStore) execute(fn func() error) error {
	var domainErr error
	err := r.cb.Execute(func() error {
		return RetryOnDBLock(func() error {
			err := fn()
			if isDomainError(err) {
				// The store answered; don't count it against the breaker
				// and don't retry.
				domainErr = err
				return nil
			}
			return err
		})
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) || isDBLocked(err) {
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
		return err
	}
	return domainErr
}

func isDomainError(err error) bool {
	if err == nil {
		return false
	}
	var ce *core.ConflictError
	return errors.As(err, &ce) ||
		errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrInvalidInterval) ||
		errors.Is(err, core.ErrEmptyOwner)
}
