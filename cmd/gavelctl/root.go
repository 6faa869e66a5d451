// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/gavel/internal/auction"
	"github.com/tomtom215/gavel/internal/config"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/store"
)

// RootOptions holds the global flags.
type RootOptions struct {
	DataDir string
	Format  string // text or json
	Verbose bool

	cfg *config.Config
}

var validFormats = []string{"text", "json"}

// NewRootCommand builds the gavelctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "gavelctl",
		Short:         "Administer a Gavel data directory",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory (overrides DATA_DIR and config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(newUserCommand(opts))
	cmd.AddCommand(newLotCommand(opts))
	cmd.AddCommand(newSettleCommand(opts))

	return cmd
}

func (o *RootOptions) load(stderr io.Writer) error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, validFormats)
	}

	if o.Verbose {
		logging.Init(logging.Config{Level: "debug", Format: "console"})
		logging.SetOutput(stderr)
	} else {
		logging.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.DataDir != "" {
		cfg.Storage.DataDir = o.DataDir
	}
	o.cfg = cfg
	return nil
}

func (o *RootOptions) store() *store.Store {
	s := o.cfg.Storage
	return store.New(store.Paths{
		Users:  s.UsersPath(),
		Items:  s.ItemsPath(),
		Bids:   s.BidsPath(),
		Images: s.ImagesPath(),
	})
}

func (o *RootOptions) auctionService() (*auction.Service, error) {
	pricer, err := auction.NewPricer(o.cfg.Auction.Pricing)
	if err != nil {
		return nil, err
	}
	return auction.NewService(o.store(), auction.WithPricer(pricer)), nil
}

// writeJSON writes v when --format json is set and reports whether it did.
func (o *RootOptions) writeJSON(w io.Writer, v interface{}) (bool, error) {
	if o.Format != "json" {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
