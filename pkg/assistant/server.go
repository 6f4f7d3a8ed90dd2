package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SessionHeader selects the conversation and cart of a /chat request.
const SessionHeader = "X-Session-ID"

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Output string `json:"output"`
}

// Mount registers POST /chat.
func (a *Assistant) Mount(r chi.Router) {
	r.Post("/chat", a.handleChat)
}

func (a *Assistant) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = DefaultSession
	}

	output, err := a.Reply(r.Context(), sessionID, req.Prompt)
	if err != nil {
		a.log.WithError(err).WithField("session", sessionID).Error("chat failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatResponse{Output: output}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
