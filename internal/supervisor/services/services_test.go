// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/models"
)

func init() {
	logging.SetOutput(io.Discard)
}

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*WebSocketHubService)(nil)
	_ suture.Service = (*EventBusService)(nil)
	_ suture.Service = (*TickerService)(nil)
)

type fakeHTTPServer struct {
	mu         sync.Mutex
	listenErr  error
	shutdownCh chan struct{}
	shutdowns  int
}

func newFakeHTTPServer(listenErr error) *fakeHTTPServer {
	return &fakeHTTPServer{listenErr: listenErr, shutdownCh: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	close(f.shutdownCh)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newFakeHTTPServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if srv.shutdowns != 1 {
		t.Errorf("Shutdown called %d times", srv.shutdowns)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_ListenError(t *testing.T) {
	svc := NewHTTPServerService(newFakeHTTPServer(errors.New("address in use")), 0)
	err := svc.Serve(context.Background())
	if err == nil || err.Error() != "http server failed: address in use" {
		t.Errorf("Serve() = %v", err)
	}
}

type fakeHub struct{ runs atomic.Int32 }

func (h *fakeHub) RunWithContext(ctx context.Context) error {
	h.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewWebSocketHubService(hub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if hub.runs.Load() != 1 {
		t.Errorf("runs = %d", hub.runs.Load())
	}
}

type fakeRouter struct{ err error }

func (r fakeRouter) Run(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return nil
}

func TestEventBusService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewEventBusService(fakeRouter{}).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled Serve() = %v", err)
	}

	err := NewEventBusService(fakeRouter{err: errors.New("boom")}).Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("failed Serve() = %v, want ErrDoNotRestart", err)
	}
}

func TestTickerService_RunsImmediatelyAndOnInterval(t *testing.T) {
	var calls atomic.Int32
	svc := NewTickerService("test", 10*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("first run fails")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("calls = %d", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
}

type fakeSettler struct{ calls atomic.Int32 }

func (f *fakeSettler) SettleExpired(context.Context) ([]models.LotView, error) {
	f.calls.Add(1)
	return nil, nil
}

type fakeSessions struct {
	count int
}

func (f *fakeSessions) CleanupExpired(context.Context) (int, error) { return 2, nil }
func (f *fakeSessions) Count(context.Context) (int, error)          { return f.count, nil }

type fakeAudit struct{ calls atomic.Int32 }

func (f *fakeAudit) Cleanup(context.Context) (int64, error) {
	f.calls.Add(1)
	return 0, nil
}

func TestPeriodicServices(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settler := &fakeSettler{}
	audit := &fakeAudit{}
	sessions := &fakeSessions{count: 7}

	go func() { _ = NewSettlementService(settler, time.Hour).Serve(ctx) }()
	go func() { _ = NewAuditRetentionService(audit, time.Hour).Serve(ctx) }()
	go func() { _ = NewSessionCleanupService(sessions, time.Hour).Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for settler.calls.Load() == 0 || audit.calls.Load() == 0 || testutil.ToFloat64(metrics.ActiveSessions) != 7 {
		if time.Now().After(deadline) {
			t.Fatal("periodic services did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
