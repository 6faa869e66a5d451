// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tomtom215/gavel/internal/models"
)

// monetaryPrecision is two decimal places (cents).
const monetaryPrecision int32 = 2

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(monetaryPrecision)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(monetaryPrecision).Float64()
	return f
}

// Pricer derives a lot's current price from its bid history and decides what
// amount an incoming bid is recorded at.
type Pricer interface {
	// Name is the configuration value selecting this pricer.
	Name() string

	// Current is the price the next bid has to beat.
	Current(lot *models.Lot, bids []models.Bid) decimal.Decimal

	// Accept returns the amount to record for a requested bid, or an error
	// wrapping ErrBidTooLow. A zero request means "bid the minimum".
	Accept(lot *models.Lot, bids []models.Bid, requested decimal.Decimal) (decimal.Decimal, error)
}

// NextMinimum is the smallest acceptable bid: current price plus increment.
func NextMinimum(p Pricer, lot *models.Lot, bids []models.Bid) decimal.Decimal {
	return p.Current(lot, bids).Add(money(lot.Increment))
}

// HighestBid prices a lot at its largest bid amount, or the start price when
// nobody has bid yet. Bidders choose their amount freely above the minimum.
type HighestBid struct{}

func (HighestBid) Name() string { return "highest_bid" }

func (HighestBid) Current(lot *models.Lot, bids []models.Bid) decimal.Decimal {
	if len(bids) == 0 {
		return money(lot.StartPrice)
	}
	current := money(bids[0].Amount)
	for _, b := range bids[1:] {
		if a := money(b.Amount); a.GreaterThan(current) {
			current = a
		}
	}
	return current
}

func (p HighestBid) Accept(lot *models.Lot, bids []models.Bid, requested decimal.Decimal) (decimal.Decimal, error) {
	minimum := NextMinimum(p, lot, bids)
	if requested.IsZero() {
		return minimum, nil
	}
	if requested.LessThan(minimum) {
		return decimal.Zero, &BidTooLowError{Minimum: toFloat(minimum), Amount: toFloat(requested)}
	}
	return requested, nil
}

// FixedIncrement prices a lot at start + n*increment where n is the number of
// bids. Every accepted bid moves the price by exactly one increment and is
// recorded at the next minimum, whatever amount was offered.
type FixedIncrement struct{}

func (FixedIncrement) Name() string { return "fixed_increment" }

func (FixedIncrement) Current(lot *models.Lot, bids []models.Bid) decimal.Decimal {
	n := decimal.NewFromInt(int64(len(bids)))
	return money(lot.StartPrice).Add(money(lot.Increment).Mul(n))
}

func (p FixedIncrement) Accept(lot *models.Lot, bids []models.Bid, requested decimal.Decimal) (decimal.Decimal, error) {
	minimum := NextMinimum(p, lot, bids)
	if !requested.IsZero() && requested.LessThan(minimum) {
		return decimal.Zero, &BidTooLowError{Minimum: toFloat(minimum), Amount: toFloat(requested)}
	}
	return minimum, nil
}

// NewPricer returns the pricer for a configuration value.
func NewPricer(name string) (Pricer, error) {
	switch name {
	case "", HighestBid{}.Name():
		return HighestBid{}, nil
	case FixedIncrement{}.Name():
		return FixedIncrement{}, nil
	default:
		return nil, fmt.Errorf("unknown pricing mode %q", name)
	}
}
