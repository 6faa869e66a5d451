// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package authz

import (
	"context"
	"net/http"

	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
)

// DenialLogger records refused requests.
type DenialLogger interface {
	LogAuthzDenied(ctx context.Context, actor audit.Actor, source audit.Source, resource, action string)
}

// Middleware enforces the policy on every request path.
type Middleware struct {
	enforcer *Enforcer
	audit    DenialLogger
}

// NewMiddleware returns the middleware. auditLogger may be nil.
func NewMiddleware(enforcer *Enforcer, auditLogger DenialLogger) *Middleware {
	return &Middleware{enforcer: enforcer, audit: auditLogger}
}

// AuthorizeRequest maps the HTTP method to an action and checks the caller's
// role against the request path. It expects auth.Middleware.Authenticate to
// have run; anonymous callers get 401.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.GetAuthSubject(r.Context())
		if subject == nil {
			auth.WriteError(w, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Authentication required")
			return
		}

		action := methodToAction(r.Method)
		object := r.URL.Path

		allowed, err := m.enforcer.Enforce(subject.Role, object, action)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			auth.WriteError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().Str("path", object).Str("action", action).Str("role", subject.Role).Msg("Authorization denied")
			if m.audit != nil {
				actor := audit.UserActor(subject.Username, subject.Role, string(subject.AuthMethod))
				m.audit.LogAuthzDenied(r.Context(), actor, audit.SourceFromRequest(r), object, action)
			}
			auth.WriteError(w, http.StatusForbidden, models.ErrCodeForbidden, "Forbidden: insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}
