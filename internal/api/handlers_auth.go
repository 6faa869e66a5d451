// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/models"
)

// Login checks the username and password against the user file, starts a
// session and sets the session cookie. When bearer tokens are enabled the
// response also carries a JWT.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	source := audit.SourceFromRequest(r)
	user, err := h.authn.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		metrics.RecordLogin(false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit.LogAuthFailure(ctx, req.Username, source, "invalid credentials")
			logging.Ctx(ctx).Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Login failed")
			respondError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid username or password", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed", err)
		return
	}

	session, err := auth.NewSession(user, h.cfg.SessionTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed", err)
		return
	}
	if err := h.sessions.Create(ctx, session); err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed", err)
		return
	}
	h.authMW.SetSessionCookie(w, session)

	resp := models.LoginResponse{User: user, ExpiresAt: session.ExpiresAt}
	if h.jwt != nil {
		token, _, err := h.jwt.GenerateToken(user)
		if err != nil {
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Login failed", err)
			return
		}
		resp.Token = token
	}

	metrics.RecordLogin(true)
	h.refreshSessionGauge(ctx)
	h.audit.LogAuthSuccess(ctx, audit.UserActor(user.Username, user.Role, string(auth.AuthMethodSession)), source)
	logging.Ctx(ctx).Info().Str("username", user.Username).Str("role", user.Role).Msg("User logged in")

	respondSuccess(w, http.StatusOK, resp, start)
}

// Logout ends the cookie session, if any, and clears the cookie. Bearer
// tokens stay valid until they expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)

	if subject.SessionID != "" {
		if err := h.sessions.Delete(ctx, subject.SessionID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Logout failed", err)
			return
		}
		h.refreshSessionGauge(ctx)
	}
	h.authMW.ClearSessionCookie(w)
	h.audit.LogLogout(ctx, audit.UserActor(subject.Username, subject.Role, string(subject.AuthMethod)),
		audit.SourceFromRequest(r), subject.SessionID)

	respondSuccess(w, http.StatusOK, map[string]bool{"logged_out": true}, start)
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject := auth.GetAuthSubject(r.Context())
	respondSuccess(w, http.StatusOK, subject.User(), time.Now())
}
