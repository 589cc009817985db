package httpapi

import (
	"net/http"
)

// NewRouter wires the reservation API, the WebSocket feed, and the
// optional auth middleware.
func NewRouter(svc *Service, wsHandler http.HandlerFunc, middleware func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reservations", svc.handleReservations)
	mux.HandleFunc("/api/reservations/", svc.handleReservationByID)
	mux.HandleFunc("/api/resources", svc.handleResources)
	if wsHandler != nil {
		mux.HandleFunc("/ws/reservations", wsHandler)
	}
	if middleware != nil {
		return middleware(mux)
	}
	return mux
}
