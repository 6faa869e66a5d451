// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/authz"
	"github.com/tomtom215/gavel/internal/middleware"
	"github.com/tomtom215/gavel/internal/models"
)

// Router wires handlers to routes and middleware.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

func NewRouter(handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMW,
		authz:         authzMW,
		chiMiddleware: chiMW,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(chimiddleware.Compress(5, "application/json", "text/html"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, models.ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Get("/", router.handler.UI)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.auth.Authenticate)

		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.handler.Login)

		r.Group(func(r chi.Router) {
			r.Use(router.auth.RequireAuth)
			r.Post("/logout", router.handler.Logout)
			r.Get("/me", router.handler.Me)
		})
	})

	// Everything below is decided by the authz policy.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(router.auth.Authenticate)
		r.Use(router.authz.AuthorizeRequest)

		r.Get("/api/v1/ws", router.handler.WebSocket)

		r.Route("/api/v1/lots", func(r chi.Router) {
			r.Get("/", router.handler.ListLots)
			r.Get("/{id}", router.handler.GetLot)
			r.Get("/{id}/image", router.handler.LotImage)
			r.Post("/{id}/bids", router.handler.PlaceBid)
		})

		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(router.auth.RequireAdmin)

			r.Post("/lots", router.handler.CreateLot)
			r.Put("/lots/{id}", router.handler.UpdateLot)
			r.Delete("/lots/{id}", router.handler.DeleteLot)
			r.Get("/lots/{id}/bids", router.handler.LotBids)
			r.Get("/bids", router.handler.AllBids)
			r.Get("/audit", router.handler.AuditEvents)
			r.Post("/settle", router.handler.Settle)
		})
	})

	return r
}
