// Package embedded runs a slot scheduler server in-process, for
// applications that want a local booking endpoint without shelling out
// to the slotscheduler binary.
package embedded

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/internal/auth"
	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	httpapi "github.com/jeewonyang/TCSlotScheduler/internal/http"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage/sqlite"
	"github.com/jeewonyang/TCSlotScheduler/internal/ws"
)

// Config configures the embedded server.
type Config struct {
	// DBPath is the SQLite database file. Empty defaults to
	// ~/.slotscheduler/data.db.
	DBPath string

	// Port to listen on. 0 picks an ephemeral port.
	Port int

	// Host to bind to. Empty defaults to 127.0.0.1.
	Host string

	// Resources is the closed set of bookable resources. Empty uses
	// core.DefaultResources.
	Resources []core.Resource

	// RequireAuth enables the API key middleware. The keyring is
	// loaded from SLOTSCHEDULER_KEYS_FILE, bootstrapping a dev key
	// when the file is missing.
	RequireAuth bool
}

// Server is an in-process scheduler.
type Server struct {
	cfg   Config
	store *sqlite.Store
	hub   *ws.Hub
	http  *http.Server

	mu      sync.Mutex
	ln      net.Listener
	started bool
}

func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".slotscheduler", "data.db")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	var middleware func(http.Handler) http.Handler
	if cfg.RequireAuth {
		ring, err := auth.LoadKeyringFromEnv()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("load auth: %w", err)
		}
		middleware = auth.Middleware(ring)
	}

	hub := ws.NewHub()
	svc := httpapi.NewService(sqlite.NewResilient(store), cfg.Resources).WithBroadcaster(hub)
	router := httpapi.NewRouter(svc, hub.Handler(), middleware)

	return &Server{
		cfg:   cfg,
		store: store,
		hub:   hub,
		http:  &http.Server{Handler: router},
	}, nil
}

// Start binds the listener and serves in a goroutine. It returns once
// the listener is accepting, so URL is immediately usable.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln
	s.started = true

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "slotscheduler embedded server error: %v\n", err)
		}
	}()
	return nil
}

// Stop shuts the server down gracefully and closes the store.
func (s *Server) Stop() error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// Addr returns the bound listen address. Empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// URL returns the base URL clients should dial. Empty before Start.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Store exposes the underlying store for direct in-process access.
func (s *Server) Store() *sqlite.Store {
	return s.store
}
