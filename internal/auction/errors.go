// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auction

import (
	"errors"
	"fmt"
)

var (
	// ErrLotNotFound is returned for unknown lot IDs.
	ErrLotNotFound = errors.New("lot not found")

	// ErrAuctionClosed is returned for bids or edits on a lot whose end time
	// has passed or that has been settled.
	ErrAuctionClosed = errors.New("auction closed")

	// ErrBidTooLow is returned for bids below current price plus increment.
	ErrBidTooLow = errors.New("bid too low")

	// ErrInvalidAmount is returned for negative, NaN or infinite amounts.
	ErrInvalidAmount = errors.New("invalid bid amount")

	// ErrInvalidLot is returned when lot fields fail validation.
	ErrInvalidLot = errors.New("invalid lot")
)

// BidTooLowError carries the minimum the bid had to reach.
type BidTooLowError struct {
	Minimum float64
	Amount  float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: %.2f is below the minimum of %.2f", e.Amount, e.Minimum)
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// RejectionReason maps a bid error to a short label for metrics and audit.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrAuctionClosed):
		return "closed"
	case errors.Is(err, ErrBidTooLow):
		return "too_low"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrLotNotFound):
		return "not_found"
	default:
		return "error"
	}
}
