// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/gavel/internal/models"
)

var (
	// ErrNoCredentials means the request carried no session or token.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials means the username or password did not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserSource provides the username to password mapping from users.json.
type UserSource interface {
	LoadUsers() (map[string]string, error)
}

// dummyHash keeps the unknown-user path as slow as a bcrypt comparison.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z2jF1p6ZKcU0ybC7l4lZ8G1W")

// Authenticator checks credentials against the user file. Stored passwords
// may be bcrypt hashes or, as in legacy files, plaintext.
type Authenticator struct {
	users         UserSource
	adminUsername string
}

// NewAuthenticator returns an authenticator. adminUsername receives the
// admin role; every other user is a bidder.
func NewAuthenticator(users UserSource, adminUsername string) *Authenticator {
	return &Authenticator{users: users, adminUsername: adminUsername}
}

// RoleFor returns the role a username is granted.
func (a *Authenticator) RoleFor(username string) string {
	if username == a.adminUsername {
		return models.RoleAdmin
	}
	return models.RoleBidder
}

// Authenticate verifies a username and password.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	users, err := a.users.LoadUsers()
	if err != nil {
		return models.User{}, fmt.Errorf("load users: %w", err)
	}

	stored, ok := users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return models.User{}, ErrInvalidCredentials
	}
	if !CheckPassword(stored, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return models.User{Username: username, Role: a.RoleFor(username)}, nil
}

// IsPasswordHash reports whether stored looks like a bcrypt hash.
func IsPasswordHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// CheckPassword compares a candidate against a stored password or hash.
func CheckPassword(stored, candidate string) bool {
	if IsPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
