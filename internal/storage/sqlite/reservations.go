package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

func (s *Store) List(ctx context.Context) ([]core.Reservation, error) {
	rows, err := s.db.Query(
		`SELECT id, resource, owner, start_at, end_at, created_at
		 FROM reservations
		 ORDER BY start_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []core.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Insert admits r only if no live row on the same resource intersects
// [Start, End). The guard and the insert are a single SQL statement, so
// the check is atomic with respect to concurrent writers in any process
// sharing the database file.
func (s *Store) Insert(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	if !r.Start.Before(r.End) {
		return core.Reservation{}, core.ErrInvalidInterval
	}
	if strings.TrimSpace(r.Owner) == "" {
		return core.Reservation{}, core.ErrEmptyOwner
	}
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(
		`INSERT INTO reservations (id, resource, owner, start_at, end_at, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		     SELECT 1 FROM reservations
		     WHERE resource = ? AND start_at < ? AND ? < end_at
		 )`,
		r.ID, string(r.Resource), r.Owner, r.Start.UTC().Unix(), r.End.UTC().Unix(),
		r.CreatedAt.Format(time.RFC3339Nano),
		string(r.Resource), r.End.UTC().Unix(), r.Start.UTC().Unix(),
	)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("insert reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Reservation{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		conflicting, err := s.findConflicting(r)
		if err != nil {
			return core.Reservation{}, err
		}
		return core.Reservation{}, &core.ConflictError{Conflicting: conflicting}
	}

	s.notifier.notify()
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.Exec(`DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	s.notifier.notify()
	return nil
}

// Get looks up one reservation by ID.
func (s *Store) Get(ctx context.Context, id string) (core.Reservation, error) {
	row := s.db.QueryRow(
		`SELECT id, resource, owner, start_at, end_at, created_at
		 FROM reservations WHERE id = ?`, id,
	)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reservation{}, core.ErrNotFound
	}
	return r, err
}

func (s *Store) Subscribe(onChange func()) storage.Subscription {
	return s.notifier.subscribe(onChange)
}

func (s *Store) findConflicting(r core.Reservation) (core.Reservation, error) {
	row := s.db.QueryRow(
		`SELECT id, resource, owner, start_at, end_at, created_at
		 FROM reservations
		 WHERE resource = ? AND start_at < ? AND ? < end_at
		 ORDER BY start_at ASC LIMIT 1`,
		string(r.Resource), r.End.UTC().Unix(), r.Start.UTC().Unix(),
	)
	conflicting, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Guard fired but the row is gone already.
		return core.Reservation{}, fmt.Errorf("conflicting reservation vanished")
	}
	return conflicting, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (core.Reservation, error) {
	var (
		id, resource, owner, createdAt string
		startAt, endAt                 int64
	)
	if err := row.Scan(&id, &resource, &owner, &startAt, &endAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Reservation{}, err
		}
		return core.Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("parse created_at: %w", err)
	}
	return core.Reservation{
		ID:        id,
		Resource:  core.Resource(resource),
		Owner:     owner,
		Start:     time.Unix(startAt, 0).UTC(),
		End:       time.Unix(endAt, 0).UTC(),
		CreatedAt: created,
	}, nil
}
