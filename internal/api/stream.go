package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/domain/profile"
)

// handleTransactionsStream streams a profile's transaction log as
// server-sent events. Each event carries the full current snapshot, newest
// first; the client replaces its copy wholesale.
func (s *Server) handleTransactionsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	setSSEHeaders(w)

	familyID := FamilyID(r.Context())
	profileID := chi.URLParam(r, "profileID")

	events := make(chan []ledger.Transaction, 1)
	cancel := s.ledger.Subscribe(r.Context(), familyID, profileID, 0, func(txs []ledger.Transaction) {
		select {
		case events <- txs:
		case <-r.Context().Done():
		}
	})
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case txs := <-events:
			if txs == nil {
				txs = []ledger.Transaction{}
			}
			writeSSE(w, "transactions", txs)
			flusher.Flush()
		}
	}
}

// handleProfilesStream streams the family's profile list as server-sent
// events.
func (s *Server) handleProfilesStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	setSSEHeaders(w)

	familyID := FamilyID(r.Context())

	events := make(chan []profile.Profile, 1)
	cancel := s.profiles.SubscribeAll(r.Context(), familyID, func(profiles []profile.Profile) {
		select {
		case events <- profiles:
		case <-r.Context().Done():
		}
	})
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case profiles := <-events:
			if profiles == nil {
				profiles = []profile.Profile{}
			}
			writeSSE(w, "profiles", profiles)
			flusher.Flush()
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n"))
}
