// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/models"
)

const (
	multipartMemory = 1 << 20
	maxAuditLimit   = 1000
)

// CreateLot accepts either a JSON CreateLotRequest or a multipart form with
// the same fields plus an optional "image" file part.
func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)

	var (
		req models.CreateLotRequest
		img *auction.ImageUpload
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		req, img, err = h.parseLotForm(w, r)
		if bodyTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, models.ErrCodeValidation, "Image is too large", nil)
			return
		}
		if err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
			return
		}
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Invalid request body", nil)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	lot, err := h.auction.CreateLot(ctx, subject.Username, req, img)
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, withImageURL(*lot), start)
}

// bodyTooLarge reports whether err came from the MaxBytesReader limit.
// mime/multipart does not always wrap read errors, hence the message check.
func bodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func (h *Handler) parseLotForm(w http.ResponseWriter, r *http.Request) (models.CreateLotRequest, *auction.ImageUpload, error) {
	var req models.CreateLotRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxImageBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return req, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	req.Name = strings.TrimSpace(r.FormValue("name"))
	req.Description = r.FormValue("description")
	req.EndTime = strings.TrimSpace(r.FormValue("end_time"))

	var err error
	if req.StartPrice, err = formFloat(r, "start_price"); err != nil {
		return req, nil, err
	}
	if req.Increment, err = formFloat(r, "increment"); err != nil {
		return req, nil, err
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, fmt.Errorf("invalid image part: %w", err)
	}
	// the multipart file is released by RemoveAll once the request finishes
	return req, &auction.ImageUpload{Filename: header.Filename, Data: file}, nil
}

func formFloat(r *http.Request, key string) (float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

// UpdateLot changes the fields present in the body.
func (h *Handler) UpdateLot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)

	var req models.UpdateLotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	lot, err := h.auction.UpdateLot(ctx, subject.Username, chi.URLParam(r, "id"), req)
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, withImageURL(*lot), start)
}

// DeleteLot removes the lot with its bids and image.
func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	subject := auth.GetAuthSubject(ctx)
	id := chi.URLParam(r, "id")

	if err := h.auction.DeleteLot(ctx, subject.Username, id); err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"id": id}, start)
}

// LotBids returns one lot's bid history in arrival order.
func (h *Handler) LotBids(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	history, err := h.auction.BidHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, history, start)
}

// AllBids returns the bid history of every lot, grouped per lot.
func (h *Handler) AllBids(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	history, err := h.auction.AllBidHistory(r.Context())
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, history, start)
}

// AuditEvents queries the audit log. Filters: type (comma separated),
// outcome, actor, target, limit.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	filter := audit.DefaultQueryFilter()
	for _, t := range strings.Split(q.Get("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter.Types = append(filter.Types, audit.EventType(t))
		}
	}
	if o := q.Get("outcome"); o != "" {
		filter.Outcomes = []audit.Outcome{audit.Outcome(o)}
	}
	filter.ActorID = q.Get("actor")
	filter.TargetID = q.Get("target")
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxAuditLimit {
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation,
				fmt.Sprintf("limit must be between 1 and %d", maxAuditLimit), nil)
			return
		}
		filter.Limit = limit
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to query audit log", err)
		return
	}
	countFilter := filter
	countFilter.Limit = 0
	total, err := h.audit.Count(r.Context(), countFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to count audit events", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"events": events, "total": total}, start)
}

// Settle runs settlement now instead of waiting for the ticker.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	settled, err := h.auction.SettleExpired(r.Context())
	if err != nil {
		respondAuctionError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"settled": withImageURLs(settled)}, start)
}
