// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"voyago_booking/internal/app"
	"voyago_booking/internal/domain"
)

type Handlers struct {
	S       *app.SessionManager
	Archive domain.ReservationArchive // optional read path
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/bookings", h.beginHold)
	s.mux.Get("/v1/bookings/{sid}", h.getSession)
	s.mux.Post("/v1/bookings/{sid}/travellers", h.collectTravellers)
	s.mux.Put("/v1/bookings/{sid}/reservation", h.saveReservation)
	s.mux.Post("/v1/bookings/{sid}/commit", h.commit)
	s.mux.Get("/v1/reservations/{number}", h.getReservation)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFields(w, status, title, detail, nil)
}

func writeProblemFields(w http.ResponseWriter, status int, title, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Fields: fields}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeErr maps the workflow error taxonomy onto HTTP statuses. Gateway
// messages are surfaced verbatim; transport failures stay generic and
// retry-eligible.
func writeErr(w http.ResponseWriter, err error) {
	var ferrs domain.FieldErrors
	var derr *domain.DomainError
	var terr *domain.TransportError
	var serr *domain.SequenceError

	switch {
	case errors.As(err, &ferrs):
		writeProblemFields(w, http.StatusUnprocessableEntity, "Validation Failed",
			"one or more fields are invalid", ferrs)
	case errors.Is(err, domain.ErrExpired):
		writeProblem(w, http.StatusGone, "Hold Expired",
			"the inventory hold has expired; start a new booking")
	case errors.Is(err, domain.ErrSessionNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "booking session not found")
	case errors.Is(err, domain.ErrReservationNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "reservation not found")
	case errors.Is(err, domain.ErrOperationInFlight):
		writeProblem(w, http.StatusConflict, "Operation In Flight",
			"another operation on this booking is still running")
	case errors.Is(err, domain.ErrCommitRetriesExhausted):
		writeProblem(w, http.StatusConflict, "Commit Retries Exhausted",
			"the booking could not be finalized; contact support before retrying")
	case errors.As(err, &serr):
		writeProblem(w, http.StatusConflict, "Out Of Order", serr.Error())
	case errors.As(err, &derr):
		writeProblem(w, http.StatusUnprocessableEntity, "Booking Rejected", derr.Message())
	case errors.As(err, &terr):
		writeProblem(w, http.StatusBadGateway, "Gateway Unavailable",
			"the booking service is temporarily unavailable; please retry")
	default:
		log.Error().Err(err).Msg("unhandled booking error")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

type beginHoldRequest struct {
	Offer domain.Offer `json:"offer"`
}

type beginHoldResponse struct {
	SessionID string           `json:"session_id"`
	Session   app.WorkflowView `json:"session"`
}

func (h *Handlers) beginHold(w http.ResponseWriter, r *http.Request) {
	var req beginHoldRequest
	if !decode(w, r, &req) {
		return
	}
	sid, view, err := h.S.Begin(r.Context(), req.Offer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, beginHoldResponse{SessionID: sid, Session: view})
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.S.View(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type travellersRequest struct {
	Travellers []app.TravellerInput `json:"travellers"`
}

func (h *Handlers) collectTravellers(w http.ResponseWriter, r *http.Request) {
	var req travellersRequest
	if !decode(w, r, &req) {
		return
	}
	sid := chi.URLParam(r, "sid")
	if err := h.S.CollectTravellers(r.Context(), sid, req.Travellers); err != nil {
		writeErr(w, err)
		return
	}
	view, err := h.S.View(r.Context(), sid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type saveReservationRequest struct {
	Travellers      []app.TravellerInput `json:"travellers"`
	Contact         app.ContactInput     `json:"contact"`
	Note            string               `json:"note"`
	AgencyReference string               `json:"agency_reference"`
}

func (h *Handlers) saveReservation(w http.ResponseWriter, r *http.Request) {
	var req saveReservationRequest
	if !decode(w, r, &req) {
		return
	}
	sid := chi.URLParam(r, "sid")
	err := h.S.SaveReservation(r.Context(), sid, app.SaveReservationInput{
		Travellers:      req.Travellers,
		Contact:         req.Contact,
		Note:            req.Note,
		AgencyReference: req.AgencyReference,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	view, err := h.S.View(r.Context(), sid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) commit(w http.ResponseWriter, r *http.Request) {
	rec, err := h.S.Commit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handlers) getReservation(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "reservation archive is not configured")
		return
	}
	rec, err := h.Archive.GetReservation(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
