package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/timekeepco/timekeep/internal/domain"
	"github.com/timekeepco/timekeep/internal/service"
	"github.com/timekeepco/timekeep/internal/session"
)

const (
	signupRedirect      = "/app/login"
	signupRedirectAfter = 3
)

// Authenticator is the account surface the ShipKeep pages use.
type Authenticator interface {
	Signup(ctx context.Context, in service.SignupInput) (*domain.User, error)
	Login(ctx context.Context, in service.LoginInput) (service.Session, error)
	CheckSession(ctx context.Context, token string) (session.Claims, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlers serves signup, login, logout and session checks.
type AuthHandlers struct {
	logger       *slog.Logger
	auth         Authenticator
	secureCookie bool
}

// NewAuthHandlers constructs AuthHandlers. secureCookie marks the session
// cookie Secure and should be set when served over TLS.
func NewAuthHandlers(logger *slog.Logger, auth Authenticator, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{
		logger:       logger,
		auth:         auth,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandlers) handleCheckLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, err := h.auth.CheckSession(r.Context(), session.TokenFromRequest(r))
	if err != nil {
		if !errors.Is(err, service.ErrNotAuthenticated) {
			h.logger.Error("session check failed", "error", err)
		}
		respondJSON(w, http.StatusUnauthorized, map[string]any{"logged_in": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"logged_in": true,
		"username":  claims.Username,
	})
}

func (h *AuthHandlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var payload service.SignupInput
	if err := decodeJSON(r, &payload); err != nil {
		if isBodyTooLarge(err) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.auth.Signup(r.Context(), payload)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			writeMessage(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, service.ErrValidation):
			writeMessage(w, http.StatusBadRequest, "Invalid signup details")
		case errors.Is(err, service.ErrUserExists):
			writeMessage(w, http.StatusConflict, "Username or email already exists")
		default:
			h.logger.Error("signup failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, "Signup failed, please try again")
		}
		return
	}

	h.logger.Debug("signup completed", "user_id", user.ID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":                "Signup successful! Redirecting to login...",
		"redirect":               signupRedirect,
		"redirect_after_seconds": signupRedirectAfter,
	})
}

func (h *AuthHandlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var payload service.LoginInput
	if err := decodeJSON(r, &payload); err != nil {
		if isBodyTooLarge(err) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.auth.Login(r.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Login failed, please try again")
		return
	}

	session.SetCookie(w, sess.Token, sess.Expires, h.secureCookie)
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Login successful",
		"username": sess.Username,
	})
}

func (h *AuthHandlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	if err := h.auth.Logout(r.Context(), session.TokenFromRequest(r)); err != nil {
		h.logger.Error("logout failed", "error", err)
	}
	session.ClearCookie(w, h.secureCookie)
	writeMessage(w, http.StatusOK, "Logged out")
}
