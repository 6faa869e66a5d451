// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package models

import "time"

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse is returned on successful login. Token is only set when
// bearer tokens are enabled.
type LoginResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateLotRequest creates a lot. Prices keep the minimum of 1.0 that the
// original lot form enforced.
type CreateLotRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	StartPrice  float64 `json:"start_price" validate:"gte=1"`
	Increment   float64 `json:"increment" validate:"gte=1"`
	EndTime     string  `json:"end_time" validate:"required,isotime"`
}

// UpdateLotRequest edits a lot. Nil fields are left unchanged.
type UpdateLotRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	StartPrice  *float64 `json:"start_price,omitempty" validate:"omitempty,gte=1"`
	Increment   *float64 `json:"increment,omitempty" validate:"omitempty,gte=1"`
	EndTime     *string  `json:"end_time,omitempty" validate:"omitempty,isotime"`
}

// PlaceBidRequest is the body of POST /api/v1/lots/{id}/bids. An amount of
// zero asks for a bid at the next minimum.
type PlaceBidRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}
