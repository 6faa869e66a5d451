// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package models

import (
	"strconv"
	"strings"
)

// LotIDPrefix prefixes every lot identifier ("item_1", "item_2", ...).
const LotIDPrefix = "item_"

// LotStatus is empty while a lot is unsettled.
type LotStatus string

const (
	LotStatusOpen   LotStatus = ""
	LotStatusSold   LotStatus = "sold"
	LotStatusUnsold LotStatus = "unsold"
)

// Lot is one record of items.json, keyed by lot ID.
//
// Amounts are stored as plain JSON numbers. Arithmetic on them goes through
// decimal in the auction package.
type Lot struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartPrice  float64 `json:"start_price"`
	Increment   float64 `json:"increment"`
	EndTime     ISOTime `json:"end_time"`
	Image       string  `json:"image"`

	Status     LotStatus `json:"status,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	FinalPrice float64   `json:"final_price,omitempty"`
	SettledAt  *ISOTime  `json:"settled_at,omitempty"`
}

// Settled reports whether settlement already ran for the lot.
func (l *Lot) Settled() bool {
	return l.Status != LotStatusOpen
}

// Bid is one entry in a lot's bids.json list. Lists are append-only and in
// arrival order, so the last element is the most recent bid.
type Bid struct {
	User      string  `json:"user"`
	Amount    float64 `json:"amount"`
	Timestamp ISOTime `json:"timestamp"`
}

// LotView is a lot as shown to bidders, with the derived price fields.
type LotView struct {
	ID string `json:"id"`
	Lot
	CurrentPrice float64 `json:"current_price"`
	NextMinBid   float64 `json:"next_min_bid"`
	Open         bool    `json:"open"`
	BidCount     int     `json:"bid_count"`
	Leader       string  `json:"leader,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
}

// LotBids groups a lot's bid history for the admin view.
type LotBids struct {
	LotID   string `json:"lot_id"`
	LotName string `json:"lot_name,omitempty"`
	Bids    []Bid  `json:"bids"`
}

// FormatLotID builds the identifier for sequence number n.
func FormatLotID(n int) string {
	return LotIDPrefix + strconv.Itoa(n)
}

// ParseLotID returns the sequence number of a lot ID, or false if id is not
// of the form item_<n> with n >= 1.
func ParseLotID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, LotIDPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || strconv.Itoa(n) != rest {
		return 0, false
	}
	return n, true
}
