// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package auth authenticates users against users.json and tracks who is
// signed in, either by a server-side session cookie or a bearer JWT.
package auth

import (
	"context"

	"github.com/tomtom215/gavel/internal/models"
)

// AuthMethod records how a request was authenticated.
type AuthMethod string

const (
	AuthMethodSession AuthMethod = "session"
	AuthMethodJWT     AuthMethod = "jwt"
)

// AuthSubject is the authenticated caller of a request.
type AuthSubject struct {
	Username   string
	Role       string
	AuthMethod AuthMethod

	// SessionID is empty for JWT-authenticated requests.
	SessionID string
}

// User returns the subject as a models.User.
func (s *AuthSubject) User() models.User {
	return models.User{Username: s.Username, Role: s.Role}
}

// IsAdmin reports whether the subject holds the admin role.
func (s *AuthSubject) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

type contextKey string

const authSubjectContextKey contextKey = "auth_subject"

// ContextWithSubject attaches the subject to ctx.
func ContextWithSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, authSubjectContextKey, s)
}

// GetAuthSubject returns the subject stored in ctx, or nil.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	s, _ := ctx.Value(authSubjectContextKey).(*AuthSubject)
	return s
}
