// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
	"github.com/tomtom215/gavel/internal/validation"
)

const maxJSONBodyBytes = 1 << 20

// sanitizeLogValue escapes control characters so client-supplied strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes the envelope. Auction state changes with every bid, so
// responses are never cached.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError writes an error envelope, logging err when it is non-nil.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	respondErrorDetails(w, status, code, message, nil, err)
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// decodeJSON reads a JSON body of at most maxJSONBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// validateRequest runs the struct validators and converts a failure to an
// APIError with the VALIDATION_ERROR code.
func validateRequest(v interface{}) *models.APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	return verr.ToAPIError()
}

func respondValidation(w http.ResponseWriter, apiErr *models.APIError) {
	respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
}

// respondAuctionError maps domain and storage errors to HTTP responses.
func respondAuctionError(w http.ResponseWriter, err error) {
	var tooLow *auction.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		respondErrorDetails(w, http.StatusUnprocessableEntity, models.ErrCodeBidTooLow, tooLow.Error(),
			map[string]interface{}{"minimum": tooLow.Minimum, "amount": tooLow.Amount}, nil)
	case errors.Is(err, auction.ErrBidTooLow):
		respondError(w, http.StatusUnprocessableEntity, models.ErrCodeBidTooLow, "Bid is below the minimum", nil)
	case errors.Is(err, auction.ErrLotNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Lot not found", nil)
	case errors.Is(err, auction.ErrAuctionClosed):
		respondError(w, http.StatusConflict, models.ErrCodeAuctionClosed, "Auction is closed", nil)
	case errors.Is(err, auction.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Bid amount must be a positive number", nil)
	case errors.Is(err, store.ErrImageType):
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Image must be png, jpg or jpeg", nil)
	case errors.Is(err, store.ErrImageTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, models.ErrCodeValidation, "Image is too large", nil)
	case errors.Is(err, auction.ErrInvalidLot):
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error", err)
	}
}

// withImageURL points browsers at the image endpoint instead of the file path.
func withImageURL(v models.LotView) models.LotView {
	if v.Image != "" {
		v.ImageURL = "/api/v1/lots/" + v.ID + "/image"
	}
	return v
}

func withImageURLs(views []models.LotView) []models.LotView {
	for i := range views {
		views[i] = withImageURL(views[i])
	}
	return views
}
