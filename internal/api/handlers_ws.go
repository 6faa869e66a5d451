// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"net/http"

	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
	ws "github.com/tomtom215/gavel/internal/websocket"
)

// WebSocket upgrades the connection and subscribes it to auction events.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeInternal, "WebSocket service unavailable", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	subject := auth.GetAuthSubject(r.Context())
	client := ws.NewClient(h.wsHub, conn, subject.Username)
	h.wsHub.Register <- client
	client.Start()
}
