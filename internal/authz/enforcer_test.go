// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package authz

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/gavel/internal/audit"
	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
)

func init() {
	logging.SetOutput(io.Discard)
}

func TestEnforcer_Policy(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{models.RoleBidder, "/api/v1/lots", ActionRead, true},
		{models.RoleBidder, "/api/v1/lots/item_3", ActionRead, true},
		{models.RoleBidder, "/api/v1/lots/item_3/image", ActionRead, true},
		{models.RoleBidder, "/api/v1/lots/item_3/bids", ActionWrite, true},
		{models.RoleBidder, "/api/v1/lots/item_3/bids", ActionRead, false},
		{models.RoleBidder, "/api/v1/ws", ActionRead, true},
		{models.RoleBidder, "/api/v1/admin/lots", ActionWrite, false},
		{models.RoleBidder, "/api/v1/admin/bids", ActionRead, false},
		{models.RoleAdmin, "/api/v1/admin/lots", ActionWrite, true},
		{models.RoleAdmin, "/api/v1/admin/lots/item_3", ActionDelete, true},
		{models.RoleAdmin, "/api/v1/admin/audit", ActionRead, true},
		{models.RoleAdmin, "/api/v1/lots/item_3/bids", ActionWrite, true},
		{"stranger", "/api/v1/lots", ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action+" "+tt.object, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadPolicy_Malformed(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	if err := loadPolicy(e.enforcer, "p, bidder, /x"); err == nil {
		t.Error("expected error for short policy line")
	}
}

type recordingDenials struct {
	resources []string
}

func (r *recordingDenials) LogAuthzDenied(_ context.Context, _ audit.Actor, _ audit.Source, resource, _ string) {
	r.resources = append(r.resources, resource)
}

func TestMiddleware_AuthorizeRequest(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	denials := &recordingDenials{}
	m := NewMiddleware(e, denials)
	h := m.AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method, path string, subject *auth.AuthSubject) int {
		req := httptest.NewRequest(method, path, nil)
		if subject != nil {
			req = req.WithContext(auth.ContextWithSubject(req.Context(), subject))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	bidder := &auth.AuthSubject{Username: "alice", Role: models.RoleBidder}
	admin := &auth.AuthSubject{Username: "admin", Role: models.RoleAdmin}

	if code := do(http.MethodGet, "/api/v1/lots", nil); code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d", code)
	}
	if code := do(http.MethodPost, "/api/v1/lots/item_1/bids", bidder); code != http.StatusNoContent {
		t.Errorf("bidder bid = %d", code)
	}
	if code := do(http.MethodDelete, "/api/v1/admin/lots/item_1", bidder); code != http.StatusForbidden {
		t.Errorf("bidder delete = %d", code)
	}
	if code := do(http.MethodDelete, "/api/v1/admin/lots/item_1", admin); code != http.StatusNoContent {
		t.Errorf("admin delete = %d", code)
	}
	if len(denials.resources) != 1 || denials.resources[0] != "/api/v1/admin/lots/item_1" {
		t.Errorf("denials = %v", denials.resources)
	}
}
