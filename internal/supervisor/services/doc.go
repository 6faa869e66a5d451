// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

/*
Package services adapts Gavel components to suture.Service.

  - HTTPServerService: *http.Server with graceful shutdown
  - WebSocketHubService: the websocket hub's RunWithContext loop
  - EventBusService: the Watermill router behind the event bus
  - TickerService: runs a function on an interval; used for lot
    settlement, expired session cleanup and audit retention

Every service returns when its context is canceled and implements
fmt.Stringer so suture can name it in logs.
*/
package services
