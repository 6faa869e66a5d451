// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package services

import (
	"context"
	"time"

	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/models"
)

// TickerService calls fn once at start and then every interval. Errors from
// fn are logged; the service keeps running.
type TickerService struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
}

func NewTickerService(name string, interval time.Duration, fn func(ctx context.Context) error) *TickerService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TickerService{name: name, interval: interval, fn: fn}
}

func (s *TickerService) Serve(ctx context.Context) error {
	logger := logging.Component(s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Periodic task failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *TickerService) String() string {
	return s.name
}

// Settler is satisfied by *auction.Service.
type Settler interface {
	SettleExpired(ctx context.Context) ([]models.LotView, error)
}

// NewSettlementService settles lots whose end time has passed.
func NewSettlementService(settler Settler, interval time.Duration) *TickerService {
	return NewTickerService("settlement", interval, func(ctx context.Context) error {
		_, err := settler.SettleExpired(ctx)
		return err
	})
}

// SessionCleaner is satisfied by auth.SessionStore.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// NewSessionCleanupService removes expired sessions and refreshes the
// active session gauge.
func NewSessionCleanupService(sessions SessionCleaner, interval time.Duration) *TickerService {
	return NewTickerService("session-cleanup", interval, func(ctx context.Context) error {
		removed, err := sessions.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		if removed > 0 {
			logging.Debug().Int("removed", removed).Msg("Removed expired sessions")
		}
		n, err := sessions.Count(ctx)
		if err != nil {
			return err
		}
		metrics.ActiveSessions.Set(float64(n))
		return nil
	})
}

// AuditCleaner is satisfied by *audit.Logger.
type AuditCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// NewAuditRetentionService drops audit events older than the retention.
func NewAuditRetentionService(cleaner AuditCleaner, interval time.Duration) *TickerService {
	return NewTickerService("audit-retention", interval, func(ctx context.Context) error {
		_, err := cleaner.Cleanup(ctx)
		return err
	})
}
