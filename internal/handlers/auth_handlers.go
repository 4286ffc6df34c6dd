package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"rtchat/internal/database"
	"rtchat/internal/models"
	"rtchat/internal/session"
	"rtchat/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

type AuthHandlers struct {
	db       database.UserRepository
	store    *session.Store
	cookies  *session.CookieDecoder
	jwts     *session.JWTDecoder
	resolver *session.Resolver
	ttl      time.Duration
}

func NewAuthHandlers(db database.UserRepository, store *session.Store, cookies *session.CookieDecoder, jwts *session.JWTDecoder, resolver *session.Resolver, ttl time.Duration) *AuthHandlers {
	return &AuthHandlers{
		db:       db,
		store:    store,
		cookies:  cookies,
		jwts:     jwts,
		resolver: resolver,
		ttl:      ttl,
	}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 30 {
		writeError(w, http.StatusBadRequest, "Username must be 3-30 characters long")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("Password hash error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, string(hash))
	if err != nil {
		logger.Error("Registration error: %v", err)
		writeError(w, http.StatusBadRequest, "Could not create user")
		return
	}

	h.startSession(w, r, user, http.StatusCreated)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger.Error("Login error: %v", err)
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r, h.resolver); !ok {
		return
	}

	if cookie, err := r.Cookie(CookieName); err == nil {
		if sid, err := h.cookies.Decode(cookie.Value); err == nil {
			if err := h.store.Destroy(r.Context(), sid); err != nil {
				logger.Error("Logout error: %v", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Logged out"})
}

func (h *AuthHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := authenticate(w, r, h.resolver)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: identity})
}

// startSession creates the session record and hands the client both
// credentials for it: the signed cookie for browsers and a JWT for
// socket clients that cannot hold cookies.
func (h *AuthHandlers) startSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	identity := &models.Identity{UserID: user.ID, Username: user.Username}

	sid, err := h.store.Create(r.Context(), identity)
	if err != nil {
		logger.Error("Session create error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := h.jwts.Sign(sid)
	if err != nil {
		logger.Error("Token sign error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    h.cookies.Encode(sid),
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
	})

	writeJSON(w, status, response{Success: true, Data: map[string]interface{}{
		"userId":   identity.UserID,
		"username": identity.Username,
		"token":    token,
	}})
}
