package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
	"github.com/dreyes/minutebank/internal/domain/sessionplan"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List(r.Context(), FamilyID(r.Context()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var draft profile.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.profiles.Create(r.Context(), FamilyID(r.Context()), draft)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profile.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.profiles.Update(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID"), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Delete(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	txs, err := s.ledger.ListByProfile(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSessions returns the per-day session allocation for the current
// cycle. A profile without a weekly plan has no sessions; only the aggregate
// balance applies and the response is an empty list.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	familyID := FamilyID(r.Context())
	profileID := chi.URLParam(r, "profileID")

	p, err := s.profiles.Get(r.Context(), familyID, profileID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	txs, err := s.ledger.ListByProfile(r.Context(), familyID, profileID, 0)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	stats := sessionplan.Plan(p, txs, s.clock(), s.cal)
	if stats == nil {
		stats = []sessionplan.SessionStat{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.Reconcile(r.Context(), FamilyID(r.Context()), chi.URLParam(r, "profileID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.ToggleTask(r.Context(), FamilyID(r.Context()),
		chi.URLParam(r, "profileID"), chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleAddInitiative(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := s.ledger.AddInitiative(r.Context(), FamilyID(r.Context()),
		chi.URLParam(r, "profileID"), req.Description)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleToggleConsequence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConsequenceType string  `json:"consequenceType"`
		Amount          int     `json:"amount"`
		Description     string  `json:"description"`
		TargetSession   *string `json:"targetSession"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	txs, err := s.ledger.ToggleConsequence(r.Context(), FamilyID(r.Context()),
		chi.URLParam(r, "profileID"), ledger.ToggleConsequenceRequest{
			ConsequenceType: req.ConsequenceType,
			Amount:          req.Amount,
			Description:     req.Description,
			TargetSession:   req.TargetSession,
		})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txs)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tx, err := s.ledger.Redeem(r.Context(), FamilyID(r.Context()),
		chi.URLParam(r, "profileID"), req.Minutes)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}
