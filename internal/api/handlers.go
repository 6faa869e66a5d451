// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/store"
	ws "github.com/tomtom215/gavel/internal/websocket"
)

// HandlerConfig holds request-level settings.
type HandlerConfig struct {
	SessionTTL time.Duration

	// MaxImageBytes bounds multipart uploads on lot creation.
	MaxImageBytes int64

	// AllowedOrigins is checked on websocket upgrades. "*" allows any origin.
	AllowedOrigins []string

	Version string
}

// Deps are the services the handlers call.
type Deps struct {
	Auction       *auction.Service
	Store         *store.Store
	Authenticator *auth.Authenticator
	Sessions      auth.SessionStore
	JWT           *auth.JWTManager // nil disables bearer tokens
	AuthMW        *auth.Middleware
	Audit         *audit.Logger
	Hub           *ws.Hub
}

// Handler serves every API endpoint.
type Handler struct {
	auction   *auction.Service
	store     *store.Store
	authn     *auth.Authenticator
	sessions  auth.SessionStore
	jwt       *auth.JWTManager
	authMW    *auth.Middleware
	audit     *audit.Logger
	wsHub     *ws.Hub
	cfg       HandlerConfig
	startTime time.Time
	upgrader  websocket.Upgrader
}

func NewHandler(deps Deps, cfg HandlerConfig) *Handler {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	h := &Handler{
		auction:   deps.Auction,
		store:     deps.Store,
		authn:     deps.Authenticator,
		sessions:  deps.Sessions,
		jwt:       deps.JWT,
		authMW:    deps.AuthMW,
		audit:     deps.Audit,
		wsHub:     deps.Hub,
		cfg:       cfg,
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts same-host origins, requests without an Origin header,
// and configured origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// refreshSessionGauge publishes the live session count.
func (h *Handler) refreshSessionGauge(ctx context.Context) {
	n, err := h.sessions.Count(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to count sessions")
		return
	}
	metrics.ActiveSessions.Set(float64(n))
}
