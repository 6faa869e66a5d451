// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package store persists users, lots and bids as whole-collection JSON files:
//
//	users.json  {"alice": "secret", ...}
//	items.json  {"item_1": {"name": ..., "start_price": ..., ...}, ...}
//	bids.json   {"item_1": [{"user": ..., "amount": ..., "timestamp": ...}], ...}
//
// Every read loads a whole file and every write replaces a whole file. There
// is no indexing and there are no partial updates. A single mutex serializes
// read-modify-write cycles inside one process.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tomtom215/gavel/internal/models"
)

// ErrNotFound is returned when a lot or image does not exist.
var ErrNotFound = errors.New("not found")

// Paths locates the data files.
type Paths struct {
	Users  string
	Items  string
	Bids   string
	Images string
}

// Store is the flat-file persistence layer.
type Store struct {
	paths Paths
	mu    sync.RWMutex
}

// New returns a store over the given files. Nothing is touched on disk until
// the first write.
func New(paths Paths) *Store {
	return &Store{paths: paths}
}

// Paths returns the configured file locations.
func (s *Store) Paths() Paths {
	return s.paths
}

// LoadUsers returns the username to password mapping.
func (s *Store) LoadUsers() (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadUsers()
}

func (s *Store) loadUsers() (map[string]string, error) {
	users := make(map[string]string)
	if err := readJSONFile(s.paths.Users, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUsers loads the user table, applies fn and writes it back when fn
// returns nil.
func (s *Store) UpdateUsers(ctx context.Context, fn func(users map[string]string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	if err := fn(users); err != nil {
		return err
	}
	return writeJSONFile(s.paths.Users, users)
}

func (s *Store) loadLots() (map[string]models.Lot, error) {
	lots := make(map[string]models.Lot)
	if err := readJSONFile(s.paths.Items, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (s *Store) loadBids() (map[string][]models.Bid, error) {
	bids := make(map[string][]models.Bid)
	if err := readJSONFile(s.paths.Bids, &bids); err != nil {
		return nil, err
	}
	return bids, nil
}

// Snapshot is a consistent in-memory copy of items.json and bids.json.
type Snapshot struct {
	Lots map[string]models.Lot
	Bids map[string][]models.Bid
}

// LotIDs returns the lot IDs ordered by sequence number. IDs that do not
// follow the item_<n> pattern sort last, alphabetically.
func (s *Snapshot) LotIDs() []string {
	ids := make([]string, 0, len(s.Lots))
	for id := range s.Lots {
		ids = append(ids, id)
	}
	SortLotIDs(ids)
	return ids
}

// NextLotID returns item_<max+1> over the IDs in both items.json and
// bids.json, so a new lot never picks up bid history left under its ID.
// The highest ID can come back once its lot and bids are both gone.
func (s *Snapshot) NextLotID() string {
	maxN := 0
	for id := range s.Lots {
		if n, ok := models.ParseLotID(id); ok && n > maxN {
			maxN = n
		}
	}
	for id := range s.Bids {
		if n, ok := models.ParseLotID(id); ok && n > maxN {
			maxN = n
		}
	}
	return models.FormatLotID(maxN + 1)
}

// SortLotIDs orders ids by sequence number in place.
func SortLotIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ni, oki := models.ParseLotID(ids[i])
		nj, okj := models.ParseLotID(ids[j])
		switch {
		case oki && okj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return ids[i] < ids[j]
		}
	})
}

// View loads both collections and passes them to fn under a read lock.
func (s *Store) View(ctx context.Context, fn func(snap *Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	return fn(snap)
}

func (s *Store) snapshot() (*Snapshot, error) {
	lots, err := s.loadLots()
	if err != nil {
		return nil, err
	}
	bids, err := s.loadBids()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Lots: lots, Bids: bids}, nil
}

// Tx is a read-modify-write cycle over items.json and bids.json. Only the
// files whose collections were changed through Tx are rewritten.
type Tx struct {
	Snapshot
	lotsDirty bool
	bidsDirty bool
}

// PutLot inserts or replaces a lot.
func (tx *Tx) PutLot(id string, lot models.Lot) {
	tx.Lots[id] = lot
	tx.lotsDirty = true
}

// DeleteLot removes a lot together with its bid history.
func (tx *Tx) DeleteLot(id string) {
	delete(tx.Lots, id)
	tx.lotsDirty = true
	if _, ok := tx.Bids[id]; ok {
		delete(tx.Bids, id)
		tx.bidsDirty = true
	}
}

// AppendBid adds b to the end of the lot's bid list.
func (tx *Tx) AppendBid(id string, b models.Bid) {
	tx.Bids[id] = append(tx.Bids[id], b)
	tx.bidsDirty = true
}

// Update runs fn under the write lock. When fn returns nil the changed
// collections are written back, items first.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	tx := &Tx{Snapshot: *snap}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.lotsDirty {
		if err := writeJSONFile(s.paths.Items, tx.Lots); err != nil {
			return err
		}
	}
	if tx.bidsDirty {
		if err := writeJSONFile(s.paths.Bids, tx.Bids); err != nil {
			return err
		}
	}
	return nil
}
