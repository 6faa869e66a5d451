// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/gavel/internal/logging"
)

// Config controls the audit logger.
type Config struct {
	Enabled     bool
	BufferSize  int
	LogToStdout bool
	Retention   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		BufferSize: 1000,
		Retention:  30 * 24 * time.Hour,
	}
}

// Logger writes events to a Store from a background goroutine so callers on
// the request path never block on storage.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			// drain what was queued before Close
			for {
				select {
				case e := <-l.eventChan:
					l.writeEvent(e)
				default:
					return
				}
			}
		case e := <-l.eventChan:
			l.writeEvent(e)
		}
	}
}

func (l *Logger) writeEvent(e *Event) {
	if l.config.LogToStdout {
		if data, err := json.Marshal(e); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, e); err != nil {
		logging.Error().Err(err).Str("event_id", e.ID).Msg("Failed to save audit event")
	}
}

// Log queues an event. ID and Timestamp are filled in when empty. Events
// are dropped with a warning when the buffer is full.
func (l *Logger) Log(e *Event) {
	if !l.config.Enabled {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case l.eventChan <- e:
	default:
		logging.Warn().Str("event_id", e.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close stops the writer after flushing queued events.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Cleanup deletes events older than the configured retention.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	return l.store.Delete(ctx, time.Now().Add(-l.config.Retention))
}

func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

func (l *Logger) LogAuthSuccess(ctx context.Context, actor Actor, source Source) {
	l.Log(&Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Source:      source,
		Action:      "login",
		Description: "User logged in",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func (l *Logger) LogAuthFailure(ctx context.Context, username string, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthFailure,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       Actor{ID: username, Type: "user"},
		Source:      source,
		Action:      "login",
		Description: "Login failed: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func (l *Logger) LogLogout(ctx context.Context, actor Actor, source Source, sessionID string) {
	l.Log(&Event{
		Type:        EventTypeLogout,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Target:      &Target{ID: sessionID, Type: "session"},
		Source:      source,
		Action:      "logout",
		Description: "User logged out",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func (l *Logger) LogAuthzDenied(ctx context.Context, actor Actor, source Source, resource, action string) {
	l.Log(&Event{
		Type:        EventTypeAuthzDenied,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Target:      &Target{ID: resource, Type: "resource"},
		Source:      source,
		Action:      action,
		Description: "Authorization denied for " + action + " on " + resource,
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func (l *Logger) LogBidRejected(ctx context.Context, actor Actor, source Source, lotID, reason string) {
	l.Log(&Event{
		Type:        EventTypeBidRejected,
		Severity:    SeverityInfo,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Target:      &Target{ID: lotID, Type: "lot"},
		Source:      source,
		Action:      "bid",
		Description: "Bid rejected: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest extracts the client address and user agent. RealIP
// middleware has already rewritten RemoteAddr from proxy headers.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}

// UserActor builds an actor for an authenticated user.
func UserActor(username, role, authMethod string) Actor {
	return Actor{ID: username, Type: "user", Role: role, AuthMethod: authMethod}
}

// SystemActor is the actor for background work such as settlement.
func SystemActor() Actor {
	return Actor{ID: "system", Type: "system"}
}
