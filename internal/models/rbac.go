// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package models

const (
	// RoleBidder is every authenticated account other than the admin.
	RoleBidder = "bidder"

	// RoleAdmin manages lots and reads bid history and the audit log.
	RoleAdmin = "admin"
)

// ValidRoles lists the roles known to the authorization policy.
var ValidRoles = []string{RoleBidder, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is an authenticated caller.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
