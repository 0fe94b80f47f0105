package admin

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Channels int    `json:"channels"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Channels: s.store.Len(),
		})
	}
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Model    string `json:"model,omitempty"`
	Channels int    `json:"channels"`
	Uptime   string `json:"uptime"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{
			Model:    s.model,
			Channels: s.store.Len(),
			Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		})
	}
}

// conversationJSON is a serializable conversation summary.
type conversationJSON struct {
	ChannelID   string    `json:"channel_id"`
	Messages    int       `json:"messages"`
	LastUpdated time.Time `json:"last_updated"`
}

func (s *Server) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snapshot := s.store.Snapshot()

		conversations := make([]conversationJSON, 0, len(snapshot))
		for id, conv := range snapshot {
			conversations = append(conversations, conversationJSON{
				ChannelID:   id,
				Messages:    len(conv.Messages),
				LastUpdated: conv.LastUpdated,
			})
		}
		sort.Slice(conversations, func(i, j int) bool {
			return conversations[i].ChannelID < conversations[j].ChannelID
		})

		writeJSON(w, http.StatusOK, conversations)
	}
}

func (s *Server) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		history := s.store.History(id)
		if history == nil {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func (s *Server) handleDeleteConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !s.store.Clear(id) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetTranscript() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.archive == nil {
			http.Error(w, "transcript archive not configured", http.StatusServiceUnavailable)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		id := chi.URLParam(r, "id")
		entries, err := s.archive.Recent(r.Context(), id, limit)
		if err != nil {
			s.logger.Error("transcript lookup failed", "channel_id", id, "error", err)
			http.Error(w, "transcript lookup failed", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			http.Error(w, "no transcript for channel", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
