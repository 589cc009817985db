package sqlite

import (
	"database/sql"
	"log"
	"time"
)

const slowQueryThreshold = 100 * time.Millisecond

// dbHandle is what Store methods run queries against. Both *sql.DB and
// *queryLogger satisfy it, so slow-query logging is a drop-in wrap.
type dbHandle interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
}

// queryLogger logs any statement that takes longer than
// slowQueryThreshold. The reservation table is small; a slow query here
// means lock contention, not data volume.
type queryLogger struct {
	inner *sql.DB
}

func (q *queryLogger) Exec(query string, args ...any) (sql.Result, error) {
	defer q.observe(time.Now(), query)
	return q.inner.Exec(query, args...)
}

func (q *queryLogger) Query(query string, args ...any) (*sql.Rows, error) {
	defer q.observe(time.Now(), query)
	return q.inner.Query(query, args...)
}

func (q *queryLogger) QueryRow(query string, args ...any) *sql.Row {
	defer q.observe(time.Now(), query)
	return q.inner.QueryRow(query, args...)
}

func (q *queryLogger) Close() error {
	return q.inner.Close()
}

func (q *queryLogger) observe(start time.Time, query string) {
	if d := time.Since(start); d >= slowQueryThreshold {
		log.Printf("slow query (%s): %s", d.Round(time.Millisecond), trimQuery(query))
	}
}

func trimQuery(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
