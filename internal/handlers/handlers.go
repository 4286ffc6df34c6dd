package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"rtchat/internal/models"
	"rtchat/internal/session"
)

// CookieName is the session cookie shared by the HTTP layer and the
// WebSocket gateway.
const CookieName = "sid"

type response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Source  string      `json:"source,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Success: false, Message: message})
}

// requestToken extracts the raw session token: an Authorization bearer
// token when present, otherwise the session cookie.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authenticate resolves the caller's identity or writes a 401.
func authenticate(w http.ResponseWriter, r *http.Request, resolver *session.Resolver) (*models.Identity, bool) {
	identity, err := resolver.Resolve(r.Context(), requestToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return identity, true
}
