package embedded

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/client"
	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

func TestEmbeddedServerServesBookings(t *testing.T) {
	srv, err := New(Config{
		DBPath:    filepath.Join(t.TempDir(), "data.db"),
		Resources: []core.Resource{"mill"},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	if srv.URL() == "" {
		t.Fatal("expected URL after start")
	}

	c := client.New(srv.URL())
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	inserted, err := c.Insert(context.Background(), core.Reservation{
		Resource: "mill", Owner: "Alice", Start: start, End: start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted.ID == "" {
		t.Fatal("expected assigned id")
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop is idempotent.
	if err := srv.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStartIdempotent(t *testing.T) {
	srv, err := New(Config{DBPath: filepath.Join(t.TempDir(), "data.db")})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	if err := srv.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}
}
