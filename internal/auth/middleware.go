// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
)

// SessionCookieName is the cookie carrying the session ID.
const SessionCookieName = "session"

// MiddlewareConfig controls cookie and session behaviour.
type MiddlewareConfig struct {
	SessionTTL time.Duration

	// SlidingSession extends the expiry on each authenticated request.
	SlidingSession bool

	CookieSecure bool
}

// Middleware resolves the caller of each request from the session cookie or
// an "Authorization: Bearer" JWT.
type Middleware struct {
	sessions SessionStore
	jwt      *JWTManager
	cfg      MiddlewareConfig
}

// NewMiddleware returns auth middleware. jwtManager may be nil, in which
// case bearer tokens are ignored.
func NewMiddleware(sessions SessionStore, jwtManager *JWTManager, cfg MiddlewareConfig) *Middleware {
	return &Middleware{sessions: sessions, jwt: jwtManager, cfg: cfg}
}

// Authenticate attaches the AuthSubject to the request context when the
// request carries valid credentials. Requests without credentials continue
// anonymously; use RequireAuth to reject them.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := m.subjectFromRequest(r)
		if subject == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithUsername(ctx, subject.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) subjectFromRequest(r *http.Request) *AuthSubject {
	if token := bearerToken(r); token != "" && m.jwt != nil {
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected bearer token")
			return nil
		}
		return &AuthSubject{Username: claims.Username, Role: claims.Role, AuthMethod: AuthMethodJWT}
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := m.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}
	if m.cfg.SlidingSession {
		if err := m.sessions.Touch(r.Context(), session.ID, time.Now().Add(m.cfg.SessionTTL)); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to touch session")
		}
	}
	return session.ToAuthSubject()
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth rejects anonymous requests with 401.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthSubject(r.Context()) == nil {
			WriteError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
// Route-level policy lives in authz; this guards handlers mounted outside it.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := GetAuthSubject(r.Context())
		switch {
		case subject == nil:
			WriteError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
		case !subject.IsAdmin():
			WriteError(w, http.StatusForbidden, models.ErrCodeForbidden, "Admin access required")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// SetSessionCookie writes the session cookie for s.
func (m *Middleware) SetSessionCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *Middleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WriteError writes an error envelope. It is shared with the authz middleware.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status:   "error",
		Error:    &models.APIError{Code: code, Message: message},
		Metadata: models.Metadata{Timestamp: time.Now()},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}
