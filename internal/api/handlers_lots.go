// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
)

// ListLots returns every lot with its current price, ordered by lot number.
// An empty auction returns an empty array.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lots, err := h.auction.ListLots(r.Context())
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, withImageURLs(lots), start)
}

func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lot, err := h.auction.GetLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, withImageURL(*lot), start)
}

// LotImage streams the lot's image file.
func (h *Handler) LotImage(w http.ResponseWriter, r *http.Request) {
	lot, err := h.auction.GetLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	f, err := h.store.OpenImage(lot.Image)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Lot has no image", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to open image", err)
		return
	}
	defer f.Close()

	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, filepath.Base(lot.Image), modTime, f)
}

// PlaceBid records a bid by the caller. An amount of zero bids the next
// minimum.
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)
	lotID := chi.URLParam(r, "id")

	var req models.PlaceBidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	lot, bid, err := h.auction.PlaceBid(ctx, lotID, subject.Username, req.Amount)
	if err != nil {
		if !errors.Is(err, auction.ErrLotNotFound) {
			reason := auction.RejectionReason(err)
			h.audit.LogBidRejected(ctx, audit.UserActor(subject.Username, subject.Role, string(subject.AuthMethod)),
				audit.SourceFromRequest(r), lotID, reason)
			logging.Ctx(ctx).Info().Str("lot", lotID).Str("reason", reason).Msg("Bid rejected")
		}
		respondAuctionError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, map[string]interface{}{
		"lot": withImageURL(*lot),
		"bid": bid,
	}, start)
}
