// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/tomtom215/gavel/internal/api"
	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/authz"
	"github.com/tomtom215/gavel/internal/config"
	"github.com/tomtom215/gavel/internal/events"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/store"
	"github.com/tomtom215/gavel/internal/supervisor"
	"github.com/tomtom215/gavel/internal/supervisor/services"
	ws "github.com/tomtom215/gavel/internal/websocket"
)

// auditBufferEvents bounds the in-memory audit trail.
const auditBufferEvents = 10000

// app holds every long-lived component built from the configuration.
type app struct {
	cfg      *config.Config
	store    *store.Store
	auction  *auction.Service
	bus      *events.Bus
	hub      *ws.Hub
	audit    *audit.Logger
	sessions auth.SessionStore
	server   *http.Server
}

func storePaths(cfg config.StorageConfig) store.Paths {
	return store.Paths{
		Users:  cfg.UsersPath(),
		Items:  cfg.ItemsPath(),
		Bids:   cfg.BidsPath(),
		Images: cfg.ImagesPath(),
	}
}

func sessionStorePath(cfg *config.Config) string {
	p := cfg.Security.SessionStorePath
	if filepath.IsAbs(p) || cfg.Storage.DataDir == "" {
		return p
	}
	return filepath.Join(cfg.Storage.DataDir, p)
}

// newApp wires the components. Nothing runs until the services are added
// to a supervisor tree.
func newApp(cfg *config.Config, version string) (*app, error) {
	st := store.New(storePaths(cfg.Storage))

	pricer, err := auction.NewPricer(cfg.Auction.Pricing)
	if err != nil {
		return nil, err
	}

	bus, err := events.NewBus(events.DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub()
	auditLogger := audit.NewLogger(audit.NewMemoryStore(auditBufferEvents), nil)

	bus.Subscribe("websocket-broadcast", events.BroadcastHandler(hub))
	bus.Subscribe("audit-trail", events.AuditHandler(auditLogger))

	svc := auction.NewService(st,
		auction.WithPricer(pricer),
		auction.WithPublisher(bus),
		auction.WithMaxImageBytes(cfg.Storage.MaxImageBytes),
	)

	sessions, err := auth.NewSessionStore(cfg.Security.SessionStore, sessionStorePath(cfg))
	if err != nil {
		_ = auditLogger.Close()
		_ = bus.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	var jwtManager *auth.JWTManager
	if cfg.Security.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTTTL)
		if err != nil {
			_ = sessions.Close()
			_ = auditLogger.Close()
			_ = bus.Close()
			return nil, err
		}
	}

	authMW := auth.NewMiddleware(sessions, jwtManager, auth.MiddlewareConfig{
		SessionTTL:     cfg.Security.SessionTTL,
		SlidingSession: true,
		CookieSecure:   cfg.Security.CookieSecure,
	})

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		_ = sessions.Close()
		_ = auditLogger.Close()
		_ = bus.Close()
		return nil, fmt.Errorf("load authorization policy: %w", err)
	}

	handler := api.NewHandler(api.Deps{
		Auction:       svc,
		Store:         st,
		Authenticator: auth.NewAuthenticator(st, cfg.Security.AdminUsername),
		Sessions:      sessions,
		JWT:           jwtManager,
		AuthMW:        authMW,
		Audit:         auditLogger,
		Hub:           hub,
	}, api.HandlerConfig{
		SessionTTL:     cfg.Security.SessionTTL,
		MaxImageBytes:  cfg.Storage.MaxImageBytes,
		AllowedOrigins: cfg.Security.CORSOrigins,
		Version:        version,
	})

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.CORSAllowCredentials = true
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	router := api.NewRouter(handler, authMW, authz.NewMiddleware(enforcer, auditLogger), api.NewChiMiddleware(mwCfg))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &app{
		cfg:      cfg,
		store:    st,
		auction:  svc,
		bus:      bus,
		hub:      hub,
		audit:    auditLogger,
		sessions: sessions,
		server:   server,
	}, nil
}

// addServices places every component in its supervisor layer.
func (a *app) addServices(tree *supervisor.SupervisorTree) {
	tree.AddDataService(services.NewEventBusService(a.bus))
	tree.AddDataService(services.NewSettlementService(a.auction, a.cfg.Auction.SettleInterval))
	tree.AddDataService(services.NewSessionCleanupService(a.sessions, sessionCleanupInterval))
	tree.AddDataService(services.NewAuditRetentionService(a.audit, auditRetentionInterval))

	tree.AddMessagingService(services.NewWebSocketHubService(a.hub))

	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// close releases the resources the supervisor does not own.
func (a *app) close() error {
	var errs []error
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if err := a.sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session store: %w", err))
	}
	if err := a.audit.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close audit logger: %w", err))
	}
	return errors.Join(errs...)
}

func logStartup(cfg *config.Config, version string) {
	logging.Info().
		Str("version", version).
		Str("data_dir", cfg.Storage.DataDir).
		Str("pricing", cfg.Auction.Pricing).
		Str("session_store", cfg.Security.SessionStore).
		Bool("jwt_enabled", cfg.Security.JWTSecret != "").
		Msg("Gavel starting")

	if !cfg.Security.CookieSecure {
		logging.Warn().Msg("Session cookies are not marked Secure; set COOKIE_SECURE=true behind TLS")
	}
	for _, o := range cfg.Security.CORSOrigins {
		if o == "*" {
			logging.Warn().Msg("CORS allows every origin; set CORS_ORIGINS in production")
			break
		}
	}
}
