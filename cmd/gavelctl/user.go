// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/validation"
)

// userEntry is one row of `user list`. Passwords are never printed.
type userEntry struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Hashed   bool   `json:"hashed"`
}

func newUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users.json",
	}
	cmd.AddCommand(newUserAddCommand(opts))
	cmd.AddCommand(newUserRemoveCommand(opts))
	cmd.AddCommand(newUserListCommand(opts))
	return cmd
}

func newUserAddCommand(opts *RootOptions) *cobra.Command {
	var (
		password string
		hash     bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Add a user, reading the password from stdin unless --password is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if !validation.ValidUsername(username) {
				return fmt.Errorf("invalid username %q", username)
			}

			if password == "" {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}
			if len(password) > maxPasswordLength {
				return fmt.Errorf("password longer than %d bytes", maxPasswordLength)
			}

			stored := password
			if hash {
				h, err := auth.HashPassword(password)
				if err != nil {
					return err
				}
				stored = h
			}

			err := opts.store().UpdateUsers(cmd.Context(), func(users map[string]string) error {
				if _, exists := users[username]; exists && !force {
					return fmt.Errorf("user %q already exists (use --force to replace)", username)
				}
				users[username] = stored
				return nil
			})
			if err != nil {
				return err
			}

			logging.Info().Str("username", username).Bool("hashed", hash).Msg("User saved")
			fmt.Fprintf(cmd.OutOrStdout(), "user %s saved\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when empty)")
	cmd.Flags().BoolVar(&hash, "hash", false, "store a bcrypt hash instead of the plaintext password")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing user")
	return cmd
}

func newUserRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Remove a user",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			err := opts.store().UpdateUsers(cmd.Context(), func(users map[string]string) error {
				if _, exists := users[username]; !exists {
					return fmt.Errorf("user %q not found", username)
				}
				delete(users, username)
				return nil
			})
			if err != nil {
				return err
			}

			logging.Info().Str("username", username).Msg("User removed")
			fmt.Fprintf(cmd.OutOrStdout(), "user %s removed\n", username)
			return nil
		},
	}
}

func newUserListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := opts.store().LoadUsers()
			if err != nil {
				return err
			}

			authn := auth.NewAuthenticator(nil, opts.cfg.Security.AdminUsername)
			entries := make([]userEntry, 0, len(users))
			for name, stored := range users {
				entries = append(entries, userEntry{
					Username: name,
					Role:     authn.RoleFor(name),
					Hashed:   auth.IsPasswordHash(stored),
				})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Username < entries[j].Username })

			out := cmd.OutOrStdout()
			if ok, err := opts.writeJSON(out, entries); ok {
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USERNAME\tROLE\tHASHED")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", e.Username, e.Role, e.Hashed)
			}
			return tw.Flush()
		},
	}
}

// readPassword takes the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

// maxPasswordLength matches the login request limit.
const maxPasswordLength = 256
