// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/gavel/internal/models"
)

func newLotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Inspect lots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List lots with their current price",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.auctionService()
			if err != nil {
				return err
			}
			lots, err := svc.ListLots(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := opts.writeJSON(cmd.OutOrStdout(), lots); ok {
				return err
			}
			return printLots(cmd.OutOrStdout(), lots)
		},
	})
	return cmd
}

func newSettleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "Settle every lot whose end time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.auctionService()
			if err != nil {
				return err
			}
			settled, err := svc.SettleExpired(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := opts.writeJSON(out, settled); ok {
				return err
			}
			if len(settled) == 0 {
				fmt.Fprintln(out, "nothing to settle")
				return nil
			}
			return printLots(out, settled)
		},
	}
}

func lotState(v models.LotView) string {
	switch {
	case v.Status != models.LotStatusOpen:
		return string(v.Status)
	case v.Open:
		return "open"
	default:
		return "closed"
	}
}

func printLots(w io.Writer, lots []models.LotView) error {
	if len(lots) == 0 {
		fmt.Fprintln(w, "no lots yet")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tBIDS\tLEADER\tENDS\tSTATE")
	for _, v := range lots {
		leader := v.Leader
		if v.Winner != "" {
			leader = v.Winner
		}
		if leader == "" {
			leader = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\t%s\t%s\t%s\n",
			v.ID, v.Name, v.CurrentPrice, v.BidCount, leader, v.EndTime, lotState(v))
	}
	return tw.Flush()
}
