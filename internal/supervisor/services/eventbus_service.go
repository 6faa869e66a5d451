// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// EventRouter is satisfied by *events.Bus.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventBusService runs the event router. A Watermill router cannot be run
// twice, so a failure is reported to suture as permanent.
type EventBusService struct {
	bus EventRouter
}

func NewEventBusService(bus EventRouter) *EventBusService {
	return &EventBusService{bus: bus}
}

func (e *EventBusService) Serve(ctx context.Context) error {
	err := e.bus.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("event bus stopped: %w: %w", err, suture.ErrDoNotRestart)
	}
	return fmt.Errorf("event bus stopped unexpectedly: %w", suture.ErrDoNotRestart)
}

func (e *EventBusService) String() string {
	return "event-bus"
}
