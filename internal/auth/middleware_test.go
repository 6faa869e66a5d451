// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
)

func newTestMiddleware(t *testing.T) (*Middleware, SessionStore, *JWTManager) {
	t.Helper()
	store := NewMemorySessionStore()
	jm, err := NewJWTManager(strings.Repeat("s", 32), time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return NewMiddleware(store, jm, MiddlewareConfig{SessionTTL: time.Hour, SlidingSession: true}), store, jm
}

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := GetAuthSubject(r.Context())
		if s == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(s.Username + "/" + s.Role + "/" + string(s.AuthMethod) + "/" + logging.UsernameFromContext(r.Context())))
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	m, store, jm := newTestMiddleware(t)
	session, _ := NewSession(models.User{Username: "alice", Role: models.RoleBidder}, time.Hour)
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	token, _, _ := jm.GenerateToken(models.User{Username: "admin", Role: models.RoleAdmin})

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"anonymous", func(*http.Request) {}, "anonymous"},
		{"session cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.ID})
		}, "alice/bidder/session/alice"},
		{"unknown cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "nope"})
		}, "anonymous"},
		{"bearer token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		}, "admin/admin/jwt/admin"},
		{"bad bearer token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		}, "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			m.Authenticate(echoSubject()).ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_RequireAuth(t *testing.T) {
	m, store, _ := newTestMiddleware(t)
	ctx := context.Background()
	bidder, _ := NewSession(models.User{Username: "alice", Role: models.RoleBidder}, time.Hour)
	_ = store.Create(ctx, bidder)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	authOnly := m.Authenticate(m.RequireAuth(ok))

	do := func(h http.Handler, sessionID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if sessionID != "" {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(authOnly, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous RequireAuth = %d", rec.Code)
	} else if !strings.Contains(rec.Body.String(), models.ErrCodeUnauthorized) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec := do(authOnly, bidder.ID); rec.Code != http.StatusNoContent {
		t.Errorf("bidder RequireAuth = %d", rec.Code)
	}
}

func TestMiddleware_Cookies(t *testing.T) {
	m := NewMiddleware(NewMemorySessionStore(), nil, MiddlewareConfig{CookieSecure: true})
	s, _ := NewSession(models.User{Username: "alice", Role: models.RoleBidder}, time.Hour)

	rec := httptest.NewRecorder()
	m.SetSessionCookie(rec, s)
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].Value != s.ID || !c[0].HttpOnly || !c[0].Secure {
		t.Errorf("cookie = %+v", c)
	}

	rec = httptest.NewRecorder()
	m.ClearSessionCookie(rec)
	c = rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("cleared cookie = %+v", c)
	}
}
