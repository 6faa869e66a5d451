// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
)

const readinessTimeout = 2 * time.Second

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:  "alive",
		Version: h.cfg.Version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady checks that the data files can be read and the session store
// answers. A failing check returns 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if err := h.store.View(ctx, func(*store.Snapshot) error { return nil }); err != nil {
		checks["store"] = err.Error()
		ready = false
	} else {
		checks["store"] = "ok"
	}
	if _, err := h.store.LoadUsers(); err != nil {
		checks["users"] = err.Error()
		ready = false
	} else {
		checks["users"] = "ok"
	}
	if _, err := h.sessions.Count(ctx); err != nil {
		checks["sessions"] = err.Error()
		ready = false
	} else {
		checks["sessions"] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondSuccess(w, code, models.HealthStatus{
		Status:  status,
		Version: h.cfg.Version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Checks:  checks,
	}, start)
}
