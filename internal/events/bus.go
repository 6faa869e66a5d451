// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package events carries auction domain events (lot changes, bids,
// settlement) from the auction service to the websocket hub and the audit
// log over an in-process Watermill pub/sub.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/models"
)

// Topic is the single topic all auction events are published on.
const Topic = "auction.events"

// Type identifies an event. The values double as websocket message types.
type Type string

const (
	LotCreated Type = "lot_created"
	LotUpdated Type = "lot_updated"
	LotDeleted Type = "lot_deleted"
	BidPlaced  Type = "bid_placed"
	LotSettled Type = "lot_settled"
)

// Event is the payload of every message on Topic.
type Event struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	LotID     string          `json:"lot_id"`
	Actor     string          `json:"actor"`
	RequestID string          `json:"request_id,omitempty"`
	Time      time.Time       `json:"time"`
	Lot       *models.LotView `json:"lot,omitempty"`
	Bid       *models.Bid     `json:"bid,omitempty"`
}

// Handler consumes one event. A returned error is retried a few times and
// then logged and dropped.
type Handler func(ctx context.Context, ev Event) error

// Config tunes the bus.
type Config struct {
	BufferSize           int64
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:           256,
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 50 * time.Millisecond,
	}
}

// Bus is a Watermill router over a Go channel pub/sub. Every subscribed
// handler receives every event.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewBus creates the pub/sub and router. Subscribe all handlers before Run.
func NewBus(cfg Config, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outermost first: a message that still fails after retries is acked
	// so the channel pub/sub does not redeliver it forever.
	router.AddMiddleware(
		dropAfterFailure,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      cfg.RetryMaxRetries,
			InitialInterval: cfg.RetryInitialInterval,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
	)

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

func dropAfterFailure(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			name := message.HandlerNameFromCtx(msg.Context())
			metrics.EventHandlerErrors.WithLabelValues(name).Inc()
			logging.Error().Err(err).Str("handler", name).Str("message_uuid", msg.UUID).
				Msg("Dropping event after failed retries")
			return nil, nil
		}
		return out, nil
	}
}

// Subscribe registers h under a unique name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.router.AddConsumerHandler(name, Topic, b.pubsub, func(msg *message.Message) error {
		var ev Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			// malformed payloads cannot succeed on retry
			logging.Error().Err(err).Str("handler", name).Msg("Discarding undecodable event")
			return nil
		}
		return h(msg.Context(), ev)
	})
}

// Publish sends ev to every subscriber. ID and Time are filled in when empty.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = watermill.NewUUID()
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.RequestID == "" {
		ev.RequestID = logging.RequestIDFromContext(ctx)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := message.NewMessage(ev.ID, payload)
	msg.Metadata.Set("type", string(ev.Type))

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// Run blocks until ctx is canceled or Close is called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	rerr := b.router.Close()
	perr := b.pubsub.Close()
	if rerr != nil {
		return rerr
	}
	return perr
}
