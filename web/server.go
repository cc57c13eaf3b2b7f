// ABOUTME: JSON API server exposing the four planner intents to the UI layer
// ABOUTME: Routes add/update/remove/reorder through the sync coordinator
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/harperreed/weekendly/models"
	"github.com/harperreed/weekendly/store"
	"github.com/harperreed/weekendly/sync"
)

// Notice is the outcome message attached to every mutation response.
type Notice struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type eventResponse struct {
	Event   *models.Event `json:"event,omitempty"`
	Outcome sync.Outcome  `json:"outcome"`
	Notice  Notice        `json:"notice"`
}

type Server struct {
	store       *store.Store
	coordinator *sync.Coordinator
	tokens      *sync.TokenManager
	mux         *http.ServeMux
}

func NewServer(st *store.Store, coordinator *sync.Coordinator, tokens *sync.TokenManager) *Server {
	s := &Server{
		store:       st,
		coordinator: coordinator,
		tokens:      tokens,
		mux:         http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /events", s.handleListEvents)
	s.mux.HandleFunc("POST /events", s.handleAddEvent)
	s.mux.HandleFunc("PATCH /events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /events/{id}", s.handleRemoveEvent)
	s.mux.HandleFunc("POST /events/reorder", s.handleReorderEvents)
	s.mux.HandleFunc("GET /auth/status", s.handleAuthStatus)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Starting weekendly server at http://localhost%s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.store.Events()})
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event, outcome, err := s.coordinator.AddEvent(r.Context(), draft)
	if err != nil && !isNonFatal(err) {
		writeMutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Event:   &event,
		Outcome: outcome,
		Notice:  noticeFor(outcome, err, "added"),
	})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event, outcome, err := s.coordinator.UpdateEvent(r.Context(), r.PathValue("id"), draft)
	if err != nil && !isNonFatal(err) {
		writeMutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Event:   &event,
		Outcome: outcome,
		Notice:  noticeFor(outcome, err, "updated"),
	})
}

func (s *Server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.coordinator.RemoveEvent(r.Context(), r.PathValue("id"))
	if err != nil && !isNonFatal(err) {
		writeMutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eventResponse{
		Outcome: outcome,
		Notice:  noticeFor(outcome, err, "removed"),
	})
}

func (s *Server) handleReorderEvents(w http.ResponseWriter, r *http.Request) {
	var events []models.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := s.coordinator.ReorderEvents(r.Context(), events)
	if err != nil && !isNonFatal(err) {
		writeMutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":  s.store.Events(),
		"outcome": outcome,
		"notice":  noticeFor(outcome, err, "reordered"),
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"authenticated": s.tokens.Authenticated()}
	if err := s.tokens.LastError(); err != nil {
		status["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, status)
}

// isNonFatal reports whether the mutation landed locally despite the
// error. Persistence failures are surfaced in the notice, not as an HTTP
// failure, because in-memory state is still correct for the session.
func isNonFatal(err error) bool {
	var perr *store.PersistenceError
	return errors.As(err, &perr)
}

func writeMutationError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"notice": Notice{Message: verr.Error(), Severity: string(sync.SeverityError)},
		})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func noticeFor(outcome sync.Outcome, err error, verb string) Notice {
	if err != nil {
		return Notice{
			Message:  fmt.Sprintf("Event %s, but saving to disk failed: %v", verb, err),
			Severity: string(sync.SeverityError),
		}
	}
	switch outcome {
	case sync.OutcomeRemoteConfirmed:
		return Notice{
			Message:  fmt.Sprintf("Event %s and synced to Google Calendar", verb),
			Severity: string(sync.SeveritySuccess),
		}
	case sync.OutcomeRemoteFailedLocalApplied:
		return Notice{
			Message:  fmt.Sprintf("Event %s locally, but Google Calendar sync failed", verb),
			Severity: string(sync.SeverityError),
		}
	default:
		return Notice{
			Message:  fmt.Sprintf("Event %s", verb),
			Severity: string(sync.SeveritySuccess),
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
