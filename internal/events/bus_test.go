// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
)

func init() {
	logging.SetOutput(io.Discard)
}

func startBus(t *testing.T, subscribe func(b *Bus)) *Bus {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryInitialInterval = time.Millisecond
	b, err := NewBus(cfg, nil)
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	subscribe(b)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = b.Close()
	})

	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	return b
}

func TestBus_FanOut(t *testing.T) {
	first := make(chan Event, 1)
	second := make(chan Event, 1)

	b := startBus(t, func(b *Bus) {
		b.Subscribe("first", func(_ context.Context, ev Event) error { first <- ev; return nil })
		b.Subscribe("second", func(_ context.Context, ev Event) error { second <- ev; return nil })
	})

	ctx := logging.ContextWithRequestID(context.Background(), "req-1")
	err := b.Publish(ctx, Event{Type: BidPlaced, LotID: "item_1", Actor: "bob", Bid: &models.Bid{User: "bob", Amount: 12}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, ch := range []chan Event{first, second} {
		select {
		case ev := <-ch:
			if ev.Type != BidPlaced || ev.LotID != "item_1" || ev.Bid == nil || ev.Bid.Amount != 12 {
				t.Errorf("unexpected event %+v", ev)
			}
			if ev.ID == "" || ev.Time.IsZero() {
				t.Error("expected ID and Time to be filled in")
			}
			if ev.RequestID != "req-1" {
				t.Errorf("RequestID = %q, want req-1", ev.RequestID)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBus_FailingHandlerIsRetriedThenDropped(t *testing.T) {
	var attempts atomic.Int32
	delivered := make(chan struct{}, 1)

	b := startBus(t, func(b *Bus) {
		b.Subscribe("flaky", func(context.Context, Event) error {
			attempts.Add(1)
			return errors.New("boom")
		})
		b.Subscribe("healthy", func(context.Context, Event) error {
			delivered <- struct{}{}
			return nil
		})
	})

	if err := b.Publish(context.Background(), Event{Type: LotCreated, LotID: "item_1"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("healthy handler not called")
	}

	deadline := time.Now().Add(5 * time.Second)
	for attempts.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if attempts.Load() < 2 {
		t.Fatalf("expected the failing handler to be retried, attempts = %d", attempts.Load())
	}

	// after the retries are exhausted the message is acked and not redelivered
	time.Sleep(200 * time.Millisecond)
	settled := attempts.Load()
	time.Sleep(200 * time.Millisecond)
	if got := attempts.Load(); got != settled {
		t.Errorf("handler still being called after retries: %d -> %d", settled, got)
	}
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeBroadcaster) BroadcastJSON(messageType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, messageType)
}

func TestBroadcastHandler(t *testing.T) {
	t.Parallel()
	f := &fakeBroadcaster{}
	h := BroadcastHandler(f)
	if err := h(context.Background(), Event{Type: LotDeleted}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(f.msgs) != 1 || f.msgs[0] != "lot_deleted" {
		t.Errorf("msgs = %v", f.msgs)
	}
}

type fakeAudit struct {
	events []*audit.Event
}

func (f *fakeAudit) Log(e *audit.Event) { f.events = append(f.events, e) }

func TestAuditHandler(t *testing.T) {
	t.Parallel()
	f := &fakeAudit{}
	h := AuditHandler(f)

	settled := &models.LotView{ID: "item_2", Lot: models.Lot{Name: "Clock", Status: models.LotStatusSold, Winner: "carol", FinalPrice: 40}}
	if err := h(context.Background(), Event{ID: "e1", Type: LotSettled, LotID: "item_2", Actor: "system", Lot: settled}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if err := h(context.Background(), Event{Type: "mystery"}); err == nil {
		t.Error("expected error for unmapped type")
	}

	if len(f.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(f.events))
	}
	e := f.events[0]
	if e.Type != audit.EventTypeLotSettled {
		t.Errorf("Type = %s", e.Type)
	}
	if e.Actor.Type != "system" {
		t.Errorf("Actor = %+v, want system", e.Actor)
	}
	if e.Target == nil || e.Target.Name != "Clock" {
		t.Errorf("Target = %+v", e.Target)
	}
	if e.Description != "Lot sold to carol" {
		t.Errorf("Description = %q", e.Description)
	}
	if len(e.Metadata) == 0 {
		t.Error("expected settlement metadata")
	}
}
