// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Command gavelctl administers a Gavel data directory offline: it manages
// the user file, lists lots and settles lots whose end time has passed.
//
//	gavelctl user add alice --hash
//	gavelctl user list
//	gavelctl lot list --format json
//	gavelctl settle --data-dir /var/lib/gavel
//
// It edits the same JSON files the server uses, so run it while the server
// is stopped or accept that the server reads the change on its next request.
package main

import (
	"fmt"
	"os"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
