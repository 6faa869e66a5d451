// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed ui/index.html
var indexHTML []byte

var indexModTime = time.Now()

// UI serves the single-page browser client.
func (h *Handler) UI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	http.ServeContent(w, r, "index.html", indexModTime, bytes.NewReader(indexHTML))
}
