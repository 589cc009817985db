package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/internal/conflict"
	"github.com/jeewonyang/TCSlotScheduler/internal/core"
)

// ownerHeader carries the requester's display name on cancellation. It is
// a bare assertion, not a credential; the server only checks it for exact
// equality with the stored owner.
const ownerHeader = "X-Owner"

type bookingRequest struct {
	Resource string    `json:"resource"`
	Owner    string    `json:"owner"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type reservationsResponse struct {
	Reservations []core.Reservation `json:"reservations"`
}

type resourcesResponse struct {
	Resources []core.Resource `json:"resources"`
}

func (s *Service) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReservations(w, r)
	case http.MethodPost:
		s.createReservation(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	// Extract ID from path: /api/reservations/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	id := strings.Trim(path, "/")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.getReservation(w, r, id)
	case http.MethodDelete:
		s.cancelReservation(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Service) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, resourcesResponse{Resources: s.resources})
}

func (s *Service) listReservations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []core.Reservation{}
	}
	writeJSON(w, http.StatusOK, reservationsResponse{Reservations: rows})
}

func (s *Service) getReservation(w http.ResponseWriter, r *http.Request, id string) {
	res, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) createReservation(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "malformed JSON body"})
		return
	}

	candidate := core.Reservation{
		Resource: core.Resource(req.Resource),
		Owner:    req.Owner,
		Start:    req.Start,
		End:      req.End,
	}
	// Validate against the closed resource set before touching the store.
	// The overlap decision belongs to the store's guarded insert, so the
	// admission check runs with an empty view here.
	if err := conflict.Admit(candidate, nil, s.resources); err != nil {
		writeError(w, err)
		return
	}

	inserted, err := s.store.Insert(r.Context(), candidate)
	if err != nil {
		writeError(w, err)
		return
	}

	s.broadcast(core.Event{
		Type:        core.EventReservationCreated,
		Reservation: inserted,
		CreatedAt:   time.Now().UTC(),
	})
	writeJSON(w, http.StatusCreated, inserted)
}

func (s *Service) cancelReservation(w http.ResponseWriter, r *http.Request, id string) {
	requester := strings.TrimSpace(r.Header.Get(ownerHeader))
	if requester == "" {
		requester = r.URL.Query().Get("owner")
	}

	res, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !conflict.CanCancel(res, requester) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   "forbidden",
			"message": "reservation is owned by someone else",
		})
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	s.broadcast(core.Event{
		Type:        core.EventReservationCancelled,
		Reservation: res,
		CreatedAt:   time.Now().UTC(),
	})
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the booking error taxonomy onto HTTP statuses with a
// machine code and a human-readable reason.
func writeError(w http.ResponseWriter, err error) {
	var ce *core.ConflictError
	if errors.As(err, &ce) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "overlap",
			"message":     err.Error(),
			"conflicting": ce.Conflicting,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrInvalidInterval):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_interval", "message": err.Error()})
	case errors.Is(err, core.ErrEmptyOwner):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty_owner", "message": err.Error()})
	case errors.Is(err, core.ErrUnknownResource):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown_resource", "message": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": err.Error()})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, core.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store_unavailable", "message": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "internal error"})
	}
}
