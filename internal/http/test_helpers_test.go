package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage/sqlite"
	"github.com/jeewonyang/TCSlotScheduler/internal/ws"
)

var testResources = []core.Resource{"mill", "lathe"}

// testEnv bundles a Service + httptest.Server + ws.Hub for handler tests.
type testEnv struct {
	srv   *httptest.Server
	hub   *ws.Hub
	store *sqlite.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlite.NewInMemory()
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	hub := ws.NewHub()
	svc := NewService(st, testResources).WithBroadcaster(hub)
	srv := httptest.NewServer(NewRouter(svc, hub.Handler(), nil))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { st.Close() })
	return &testEnv{srv: srv, hub: hub, store: st}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) delete(t *testing.T, path, owner string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, e.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}
