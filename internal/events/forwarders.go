// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gavel/internal/audit"
)

// Broadcaster pushes a typed message to every connected client.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// AuditLogger queues an audit event.
type AuditLogger interface {
	Log(e *audit.Event)
}

// BroadcastHandler forwards every event to live clients, replacing the
// periodic page refresh the listing previously relied on.
func BroadcastHandler(b Broadcaster) Handler {
	return func(_ context.Context, ev Event) error {
		b.BroadcastJSON(string(ev.Type), ev)
		return nil
	}
}

// AuditHandler records every event in the audit log.
func AuditHandler(l AuditLogger) Handler {
	return func(_ context.Context, ev Event) error {
		e, err := toAuditEvent(ev)
		if err != nil {
			return err
		}
		l.Log(e)
		return nil
	}
}

var auditTypes = map[Type]audit.EventType{
	LotCreated: audit.EventTypeLotCreated,
	LotUpdated: audit.EventTypeLotUpdated,
	LotDeleted: audit.EventTypeLotDeleted,
	BidPlaced:  audit.EventTypeBidPlaced,
	LotSettled: audit.EventTypeLotSettled,
}

func toAuditEvent(ev Event) (*audit.Event, error) {
	t, ok := auditTypes[ev.Type]
	if !ok {
		return nil, fmt.Errorf("no audit mapping for event type %q", ev.Type)
	}

	actor := audit.UserActor(ev.Actor, "", "")
	if ev.Actor == "" || ev.Actor == audit.SystemActor().ID {
		actor = audit.SystemActor()
	}

	target := &audit.Target{ID: ev.LotID, Type: "lot"}
	if ev.Lot != nil {
		target.Name = ev.Lot.Name
	}

	e := &audit.Event{
		ID:          ev.ID,
		Timestamp:   ev.Time,
		Type:        t,
		Severity:    audit.SeverityInfo,
		Outcome:     audit.OutcomeSuccess,
		Actor:       actor,
		Target:      target,
		Action:      string(ev.Type),
		Description: describe(ev),
		RequestID:   ev.RequestID,
	}

	meta := map[string]interface{}{}
	if ev.Bid != nil {
		meta["amount"] = ev.Bid.Amount
	}
	if ev.Type == LotSettled && ev.Lot != nil {
		meta["status"] = ev.Lot.Status
		meta["winner"] = ev.Lot.Winner
		meta["final_price"] = ev.Lot.FinalPrice
	}
	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("encode audit metadata: %w", err)
		}
		e.Metadata = data
	}
	return e, nil
}

func describe(ev Event) string {
	switch ev.Type {
	case LotCreated:
		return "Lot created"
	case LotUpdated:
		return "Lot updated"
	case LotDeleted:
		return "Lot deleted"
	case BidPlaced:
		if ev.Bid != nil {
			return fmt.Sprintf("Bid of %.2f placed", ev.Bid.Amount)
		}
		return "Bid placed"
	case LotSettled:
		if ev.Lot != nil && ev.Lot.Winner != "" {
			return "Lot sold to " + ev.Lot.Winner
		}
		return "Lot closed without bids"
	default:
		return string(ev.Type)
	}
}
