// Package api exposes the ledger over HTTP: profile CRUD, the transaction
// log and its derived views, the ledger operations, and live SSE feeds.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreyes/minutebank/internal/domain/cycle"
	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/repository"
)

// Server is the HTTP API server.
type Server struct {
	profiles  *profile.Service
	ledger    *ledger.Service
	scheduler *cycle.Scheduler
	cal       cycle.Calendar
	auth      *Authenticator
	clock     func() time.Time
	logger    *slog.Logger
}

// NewServer creates a new API server. A nil auth disables authentication and
// is only valid together with a default family.
func NewServer(
	profiles *profile.Service,
	ledgerSvc *ledger.Service,
	scheduler *cycle.Scheduler,
	cal cycle.Calendar,
	auth *Authenticator,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		profiles:  profiles,
		ledger:    ledgerSvc,
		scheduler: scheduler,
		cal:       cal,
		auth:      auth,
		clock:     time.Now,
		logger:    logger,
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Use(s.resetCheck)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Get("/stream", s.handleProfilesStream)

			r.Route("/{profileID}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Patch("/", s.handleUpdateProfile)
				r.Delete("/", s.handleDeleteProfile)

				r.Get("/transactions", s.handleListTransactions)
				r.Get("/transactions/stream", s.handleTransactionsStream)
				r.Get("/stats", s.handleStats)
				r.Get("/sessions", s.handleSessions)
				r.Get("/reconcile", s.handleReconcile)

				r.Post("/tasks/{taskID}/toggle", s.handleToggleTask)
				r.Post("/initiatives", s.handleAddInitiative)
				r.Post("/consequences", s.handleToggleConsequence)
				r.Post("/redemptions", s.handleRedeem)
			})
		})
	})

	return r
}

// resetCheck performs the lazy weekly rollover on the authenticated family.
// The request proceeds even when the check fails; a broken reset must not
// take the whole API down.
func (s *Server) resetCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		familyID := FamilyID(r.Context())
		if _, err := s.scheduler.CheckAndReset(r.Context(), familyID); err != nil {
			s.logger.Error("weekly reset check failed", "family", familyID, "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound),
		errors.Is(err, ledger.ErrProfileNotFound),
		errors.Is(err, ledger.ErrTaskNotFound),
		errors.Is(err, ledger.ErrConsequenceNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, profile.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
