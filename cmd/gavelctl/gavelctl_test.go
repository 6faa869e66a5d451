// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/peterldowns/testy/check"

	"github.com/tomtom215/gavel/internal/auth"
	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
)

// run executes gavelctl against dataDir and returns stdout.
func run(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ADMIN_USERNAME", "admin")

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func testStore(dir string) *store.Store {
	return store.New(store.Paths{
		Users:  filepath.Join(dir, "users.json"),
		Items:  filepath.Join(dir, "items.json"),
		Bids:   filepath.Join(dir, "bids.json"),
		Images: filepath.Join(dir, "images"),
	})
}

func TestUserAdd_PlaintextFromStdin(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "wonderland\n", "user", "add", "alice")
	check.NoError(t, err)
	check.Equal(t, "user alice saved\n", out)

	users, err := testStore(dir).LoadUsers()
	check.NoError(t, err)
	check.Equal(t, "wonderland", users["alice"])
}

func TestUserAdd_Hashed(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "user", "add", "bob", "--password", "builder", "--hash")
	check.NoError(t, err)

	users, err := testStore(dir).LoadUsers()
	check.NoError(t, err)
	check.True(t, auth.IsPasswordHash(users["bob"]))
	check.True(t, auth.CheckPassword(users["bob"], "builder"))
}

func TestUserAdd_ExistingNeedsForce(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "user", "add", "alice", "-p", "one")
	check.NoError(t, err)

	_, err = run(t, dir, "", "user", "add", "alice", "-p", "two")
	check.Error(t, err)

	_, err = run(t, dir, "", "user", "add", "alice", "-p", "two", "--force")
	check.NoError(t, err)
	users, _ := testStore(dir).LoadUsers()
	check.Equal(t, "two", users["alice"])
}

func TestUserAdd_Rejects(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "user", "add", "has space", "-p", "x")
	check.Error(t, err)

	_, err = run(t, dir, "\n", "user", "add", "alice")
	check.Error(t, err)
}

func TestUserRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "user", "add", "alice", "-p", "x")
	check.NoError(t, err)

	out, err := run(t, dir, "", "user", "remove", "alice")
	check.NoError(t, err)
	check.Equal(t, "user alice removed\n", out)

	_, err = run(t, dir, "", "user", "rm", "alice")
	check.Error(t, err)
}

func TestUserList_JSON(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "user", "add", "admin", "-p", "secret", "--hash")
	check.NoError(t, err)
	_, err = run(t, dir, "", "user", "add", "alice", "-p", "wonderland")
	check.NoError(t, err)

	out, err := run(t, dir, "", "user", "list", "--format", "json")
	check.NoError(t, err)

	var entries []userEntry
	check.NoError(t, json.Unmarshal([]byte(out), &entries))
	check.Equal(t, []userEntry{
		{Username: "admin", Role: models.RoleAdmin, Hashed: true},
		{Username: "alice", Role: models.RoleBidder, Hashed: false},
	}, entries)
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "user", "list", "--format", "yaml")
	check.Error(t, err)
}

func seedLot(t *testing.T, dir, id string, end time.Time, bids ...models.Bid) {
	t.Helper()
	err := testStore(dir).Update(context.Background(), func(tx *store.Tx) error {
		tx.PutLot(id, models.Lot{
			Name:       "Lot " + id,
			StartPrice: 10,
			Increment:  5,
			EndTime:    models.NewISOTime(end),
		})
		for _, b := range bids {
			tx.AppendBid(id, b)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed lot: %v", err)
	}
}

func TestLotList(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "lot", "list")
	check.NoError(t, err)
	check.Equal(t, "no lots yet\n", out)

	seedLot(t, dir, "item_1", time.Now().Add(time.Hour),
		models.Bid{User: "alice", Amount: 15, Timestamp: models.NewISOTime(time.Now())})

	out, err = run(t, dir, "", "lot", "list")
	check.NoError(t, err)
	check.True(t, strings.Contains(out, "item_1"))
	check.True(t, strings.Contains(out, "15.00"))
	check.True(t, strings.Contains(out, "alice"))
	check.True(t, strings.Contains(out, "open"))
}

func TestSettle(t *testing.T) {
	dir := t.TempDir()
	past := time.Now().Add(-time.Hour)
	seedLot(t, dir, "item_1", past, models.Bid{User: "bob", Amount: 20, Timestamp: models.NewISOTime(past)})
	seedLot(t, dir, "item_2", past)
	seedLot(t, dir, "item_3", time.Now().Add(time.Hour))

	out, err := run(t, dir, "", "settle", "--format", "json")
	check.NoError(t, err)

	var settled []models.LotView
	check.NoError(t, json.Unmarshal([]byte(out), &settled))
	check.Equal(t, 2, len(settled))
	check.Equal(t, models.LotStatusSold, settled[0].Status)
	check.Equal(t, "bob", settled[0].Winner)
	check.Equal(t, 20.0, settled[0].FinalPrice)
	check.Equal(t, models.LotStatusUnsold, settled[1].Status)

	out, err = run(t, dir, "", "settle")
	check.NoError(t, err)
	check.Equal(t, "nothing to settle\n", out)
}
