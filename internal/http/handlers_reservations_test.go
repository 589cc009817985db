package httpapi

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

func booking(resource, owner string, startHour, endHour int) map[string]any {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return map[string]any{
		"resource": resource,
		"owner":    owner,
		"start":    day.Add(time.Duration(startHour) * time.Hour).Format(time.RFC3339),
		"end":      day.Add(time.Duration(endHour) * time.Hour).Format(time.RFC3339),
	}
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/api/reservations")
	requireStatus(t, resp, http.StatusOK)
	out := decodeJSON[reservationsResponse](t, resp)
	if len(out.Reservations) != 0 {
		t.Fatalf("expected empty list, got %d", len(out.Reservations))
	}
}

func TestBookAndList(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/reservations", booking("mill", "Alice", 9, 10))
	requireStatus(t, resp, http.StatusCreated)
	created := decodeJSON[core.Reservation](t, resp)
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	listResp := env.get(t, "/api/reservations")
	requireStatus(t, listResp, http.StatusOK)
	out := decodeJSON[reservationsResponse](t, listResp)
	if len(out.Reservations) != 1 || out.Reservations[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", out.Reservations)
	}
}

func TestBookOverlapReturnsConflictPayload(t *testing.T) {
	env := newTestEnv(t)

	first := decodeJSON[core.Reservation](t, env.post(t, "/api/reservations", booking("mill", "Alice", 9, 11)))

	resp := env.post(t, "/api/reservations", booking("mill", "Bob", 10, 12))
	requireStatus(t, resp, http.StatusConflict)
	body := decodeJSON[struct {
		Error       string           `json:"error"`
		Message     string           `json:"message"`
		Conflicting core.Reservation `json:"conflicting"`
	}](t, resp)
	if body.Error != "overlap" {
		t.Errorf("error = %q, want overlap", body.Error)
	}
	if body.Conflicting.ID != first.ID {
		t.Errorf("conflicting = %q, want %q", body.Conflicting.ID, first.ID)
	}
	if body.Message == "" {
		t.Error("expected human-readable message")
	}
}

func TestBookTouchingIntervalsAdmitted(t *testing.T) {
	env := newTestEnv(t)
	requireStatus(t, env.post(t, "/api/reservations", booking("mill", "Alice", 9, 10)), http.StatusCreated)
	requireStatus(t, env.post(t, "/api/reservations", booking("mill", "Bob", 10, 11)), http.StatusCreated)
	requireStatus(t, env.post(t, "/api/reservations", booking("mill", "Carol", 8, 9)), http.StatusCreated)
}

func TestBookValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
		code string
	}{
		{"zero-length interval", booking("mill", "Carol", 10, 10), "invalid_interval"},
		{"inverted interval", booking("mill", "Carol", 11, 10), "invalid_interval"},
		{"empty owner", booking("mill", "", 9, 10), "empty_owner"},
		{"unknown resource", booking("forge", "Carol", 9, 10), "unknown_resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.post(t, "/api/reservations", tt.body)
			requireStatus(t, resp, http.StatusBadRequest)
			body := decodeJSON[map[string]string](t, resp)
			if body["error"] != tt.code {
				t.Errorf("error = %q, want %q", body["error"], tt.code)
			}
		})
	}
}

func TestCancelOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)

	created := decodeJSON[core.Reservation](t, env.post(t, "/api/reservations", booking("mill", "Alice", 9, 10)))

	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, "Bob"), http.StatusForbidden)
	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, "alice"), http.StatusForbidden)
	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, ""), http.StatusForbidden)
	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, "Alice"), http.StatusOK)
	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, "Alice"), http.StatusNotFound)
	requireStatus(t, env.delete(t, "/api/reservations/does-not-exist", "Alice"), http.StatusNotFound)

	out := decodeJSON[reservationsResponse](t, env.get(t, "/api/reservations"))
	if len(out.Reservations) != 0 {
		t.Fatalf("expected empty list after cancel, got %d", len(out.Reservations))
	}
}

func TestGetReservationByID(t *testing.T) {
	env := newTestEnv(t)
	created := decodeJSON[core.Reservation](t, env.post(t, "/api/reservations", booking("lathe", "Alice", 9, 10)))

	resp := env.get(t, "/api/reservations/"+created.ID)
	requireStatus(t, resp, http.StatusOK)
	got := decodeJSON[core.Reservation](t, resp)
	if got.Owner != "Alice" || got.Resource != "lathe" {
		t.Fatalf("unexpected reservation: %+v", got)
	}

	requireStatus(t, env.get(t, "/api/reservations/missing"), http.StatusNotFound)
}

func TestResourcesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/api/resources")
	requireStatus(t, resp, http.StatusOK)
	out := decodeJSON[resourcesResponse](t, resp)
	if len(out.Resources) != 2 || out.Resources[0] != "mill" {
		t.Fatalf("unexpected resources: %+v", out.Resources)
	}
}

func TestMutationsBroadcastToWebSocketClients(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/reservations"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	created := decodeJSON[core.Reservation](t, env.post(t, "/api/reservations", booking("mill", "Alice", 9, 10)))

	var ev core.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read created event: %v", err)
	}
	if ev.Type != core.EventReservationCreated || ev.Reservation.ID != created.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}

	requireStatus(t, env.delete(t, "/api/reservations/"+created.ID, "Alice"), http.StatusOK)
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read cancelled event: %v", err)
	}
	if ev.Type != core.EventReservationCancelled || ev.Reservation.ID != created.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodPut, env.srv.URL+"/api/reservations", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	requireStatus(t, resp, http.StatusMethodNotAllowed)
}
