// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/gavel/internal/logging"
)

const minJWTSecretLength = 32

// Validate checks the loaded configuration for values the server cannot run with.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStorage,
		c.validateSecurity,
		c.validateAuction,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	s := c.Storage
	if s.UsersFile == "" || s.ItemsFile == "" || s.BidsFile == "" {
		return errors.New("USERS_FILE, ITEMS_FILE and BIDS_FILE are required")
	}
	if s.ImagesDir == "" {
		return errors.New("IMAGES_DIR is required")
	}
	if s.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if strings.TrimSpace(s.AdminUsername) == "" {
		return errors.New("ADMIN_USERNAME is required")
	}
	if s.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	switch s.SessionStore {
	case SessionStoreMemory:
	case SessionStoreBadger:
		if s.SessionStorePath == "" {
			return errors.New("SESSION_STORE_PATH is required when SESSION_STORE=badger")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreBadger, s.SessionStore)
	}
	if s.JWTSecret != "" && len(s.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if s.JWTSecret != "" && s.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

func (c *Config) validateAuction() error {
	switch c.Auction.Pricing {
	case PricingHighestBid, PricingFixedIncrement:
	default:
		return fmt.Errorf("AUCTION_PRICING must be %q or %q, got %q", PricingHighestBid, PricingFixedIncrement, c.Auction.Pricing)
	}
	if c.Auction.SettleInterval <= 0 {
		return errors.New("AUCTION_SETTLE_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// HasWildcardCORS reports whether any configured origin is "*".
func (c *Config) HasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
