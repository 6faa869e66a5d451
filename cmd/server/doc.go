// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

/*
Package main is the entry point for the Gavel auction server.

Gavel serves a small online auction house: an administrator lists lots with
a start price, a bid increment and an end time, and logged-in users bid on
them until the lot closes. All state lives in three JSON files plus an image
directory, so a deployment is a binary and a data directory.

# Application Architecture

	RootSupervisor ("gavel")
	├── DataSupervisor ("data-layer")
	│   ├── Event bus (Watermill router)
	│   ├── Settlement ticker
	│   ├── Session cleanup
	│   └── Audit retention
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket hub
	└── APISupervisor ("api-layer")
	    └── HTTP server (chi)

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Store: users.json, items.json, bids.json and images/
 4. Event bus: lot and bid events fan out to the hub and the audit log
 5. Auth: sessions (memory or Badger), optional JWT, Casbin policy
 6. Supervisor tree, then the HTTP server

# Configuration

Environment variables override config.yaml, which overrides the defaults:

	HTTP_PORT=8501
	DATA_DIR=/var/lib/gavel
	ADMIN_USERNAME=admin
	SESSION_STORE=badger          # memory or badger
	JWT_SECRET=<32+ chars>        # enables bearer tokens
	AUCTION_PRICING=highest_bid   # or fixed_increment
	LOG_LEVEL=info
	LOG_FORMAT=json

Users are managed with gavelctl:

	gavelctl user add alice --hash

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests within server.shutdown_timeout, then the event bus, session store
and audit logger are closed.
*/
package main
