// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package config loads Gavel configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Security SecurityConfig `koanf:"security"`
	Auction  AuctionConfig  `koanf:"auction"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig locates the flat JSON files. Relative file names are resolved
// against DataDir.
type StorageConfig struct {
	DataDir       string `koanf:"data_dir"`
	UsersFile     string `koanf:"users_file"`
	ItemsFile     string `koanf:"items_file"`
	BidsFile      string `koanf:"bids_file"`
	ImagesDir     string `koanf:"images_dir"`
	MaxImageBytes int64  `koanf:"max_image_bytes"`
}

type SecurityConfig struct {
	// AdminUsername is the one account allowed into the admin routes.
	AdminUsername string `koanf:"admin_username"`

	SessionTTL       time.Duration `koanf:"session_ttl"`
	SessionStore     string        `koanf:"session_store"` // memory or badger
	SessionStorePath string        `koanf:"session_store_path"`

	// JWTSecret signs bearer tokens. Empty disables bearer auth.
	JWTSecret string        `koanf:"jwt_secret"`
	JWTTTL    time.Duration `koanf:"jwt_ttl"`

	CookieSecure      bool     `koanf:"cookie_secure"`
	CORSOrigins       []string `koanf:"cors_origins"`
	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
}

type AuctionConfig struct {
	// Pricing selects how the current price is derived from the bid list:
	// highest_bid (max amount) or fixed_increment (start + n*increment).
	Pricing string `koanf:"pricing"`

	// SettleInterval is how often expired lots are settled.
	SettleInterval time.Duration `koanf:"settle_interval"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Pricing modes.
const (
	PricingHighestBid     = "highest_bid"
	PricingFixedIncrement = "fixed_increment"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

func (s StorageConfig) resolve(name string) string {
	if filepath.IsAbs(name) || s.DataDir == "" {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

func (s StorageConfig) UsersPath() string  { return s.resolve(s.UsersFile) }
func (s StorageConfig) ItemsPath() string  { return s.resolve(s.ItemsFile) }
func (s StorageConfig) BidsPath() string   { return s.resolve(s.BidsFile) }
func (s StorageConfig) ImagesPath() string { return s.resolve(s.ImagesDir) }
