// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

/*
Package api provides the HTTP layer for Gavel.

Every JSON endpoint answers with the models.APIResponse envelope. Routes:

Authentication (/api/v1/auth):
  - POST /login: username/password, sets the session cookie and returns a bearer token when enabled
  - POST /logout: ends the current session
  - GET /me: the authenticated user

Lots (/api/v1/lots, any authenticated user):
  - GET /lots, GET /lots/{id}, GET /lots/{id}/image
  - POST /lots/{id}/bids

Admin (/api/v1/admin, admin role):
  - POST /lots (JSON or multipart with an "image" part), PUT /lots/{id}, DELETE /lots/{id}
  - GET /lots/{id}/bids, GET /bids, GET /audit, POST /settle

Other:
  - GET /api/v1/ws: websocket feed of auction events
  - GET /api/v1/health/live, GET /api/v1/health/ready
  - GET /metrics: Prometheus exposition
  - GET /: the embedded browser UI

Authentication resolves the caller from the session cookie or an
"Authorization: Bearer" token (see internal/auth). Route access is decided
by the Casbin policy in internal/authz.
*/
package api
