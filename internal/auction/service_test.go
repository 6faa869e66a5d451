// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

package auction

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/tomtom215/gavel/internal/events"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
)

func init() {
	logging.SetOutput(io.Discard)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc   *Service
	store *store.Store
	clock *fakeClock
	pub   *recordingPublisher
	dir   string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	st := store.New(store.Paths{
		Users:  filepath.Join(dir, "users.json"),
		Items:  filepath.Join(dir, "items.json"),
		Bids:   filepath.Join(dir, "bids.json"),
		Images: filepath.Join(dir, "images"),
	})
	f := &fixture{
		store: st,
		clock: &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)},
		pub:   &recordingPublisher{},
		dir:   dir,
	}
	opts = append([]Option{WithClock(f.clock), WithPublisher(f.pub)}, opts...)
	f.svc = NewService(st, opts...)
	return f
}

func (f *fixture) createLot(t *testing.T, name string, start, inc float64) *models.LotView {
	t.Helper()
	v, err := f.svc.CreateLot(context.Background(), "admin", models.CreateLotRequest{
		Name:       name,
		StartPrice: start,
		Increment:  inc,
		EndTime:    "2026-05-01T18:00:00",
	}, nil)
	check.NoError(t, err)
	return v
}

func TestCreateLot_AssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.createLot(t, "Vase", 10, 1)
	b := f.createLot(t, "Chair", 20, 5)
	check.Equal(t, "item_1", a.ID)
	check.Equal(t, "item_2", b.ID)
	check.Equal(t, 10.0, a.CurrentPrice)
	check.Equal(t, 11.0, a.NextMinBid)
	check.True(t, a.Open)

	// a deleted ID is never reused while higher IDs exist
	check.NoError(t, f.svc.DeleteLot(ctx, "admin", "item_1"))
	c := f.createLot(t, "Lamp", 5, 1)
	check.Equal(t, "item_3", c.ID)

	lots, err := f.svc.ListLots(ctx)
	check.NoError(t, err)
	check.Equal(t, 2, len(lots))
	check.Equal(t, "item_2", lots[0].ID)
	check.Equal(t, "item_3", lots[1].ID)

	check.Equal(t, []events.Type{events.LotCreated, events.LotCreated, events.LotDeleted, events.LotCreated}, f.pub.types())
}

func TestCreateLot_SkipsIDsWithLeftoverBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.Update(ctx, func(tx *store.Tx) error {
		tx.AppendBid("item_1", models.Bid{User: "mallory", Amount: 999, Timestamp: models.NewISOTime(f.clock.Now())})
		return nil
	})
	check.NoError(t, err)

	v := f.createLot(t, "Vase", 10, 1)
	check.Equal(t, "item_2", v.ID)
	check.Equal(t, 0, v.BidCount)
	check.Equal(t, 10.0, v.CurrentPrice)
	check.Equal(t, "", v.Leader)

	got, err := f.svc.GetLot(ctx, v.ID)
	check.NoError(t, err)
	check.Equal(t, 0, got.BidCount)
	check.Equal(t, 10.0, got.CurrentPrice)
}

func TestCreateLot_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  models.CreateLotRequest
	}{
		{"missing name", models.CreateLotRequest{StartPrice: 1, Increment: 1, EndTime: "2026-05-02T00:00:00"}},
		{"start below one", models.CreateLotRequest{Name: "x", StartPrice: 0.5, Increment: 1, EndTime: "2026-05-02T00:00:00"}},
		{"increment below one", models.CreateLotRequest{Name: "x", StartPrice: 1, Increment: 0, EndTime: "2026-05-02T00:00:00"}},
		{"bad end time", models.CreateLotRequest{Name: "x", StartPrice: 1, Increment: 1, EndTime: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateLot(context.Background(), "admin", tt.req, nil)
			check.True(t, errors.Is(err, ErrInvalidLot))
		})
	}
}

func TestCreateLot_WithImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := models.CreateLotRequest{Name: "Painting", StartPrice: 100, Increment: 10, EndTime: "2026-05-03T09:00:00"}

	v, err := f.svc.CreateLot(ctx, "admin", req, &ImageUpload{Filename: "photo.PNG", Data: bytes.NewReader([]byte("png-bytes"))})
	check.NoError(t, err)
	check.Equal(t, filepath.Join(f.dir, "images", "item_1.png"), v.Image)

	data, err := os.ReadFile(v.Image)
	check.NoError(t, err)
	check.Equal(t, "png-bytes", string(data))

	_, err = f.svc.CreateLot(ctx, "admin", req, &ImageUpload{Filename: "doc.gif", Data: bytes.NewReader(nil)})
	check.True(t, errors.Is(err, ErrInvalidLot))

	small := newFixture(t, WithMaxImageBytes(4))
	_, err = small.svc.CreateLot(ctx, "admin", req, &ImageUpload{Filename: "a.jpg", Data: bytes.NewReader([]byte("too large"))})
	check.True(t, errors.Is(err, ErrInvalidLot))

	// deleting the lot removes the image
	check.NoError(t, f.svc.DeleteLot(ctx, "admin", v.ID))
	_, err = os.Stat(v.Image)
	check.True(t, os.IsNotExist(err))
}

func TestCreateLot_FailedWriteRemovesImage(t *testing.T) {
	dir := t.TempDir()
	// items.json sits behind a dangling symlink: reads see no file, writes fail
	check.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "items")))
	st := store.New(store.Paths{
		Users:  filepath.Join(dir, "users.json"),
		Items:  filepath.Join(dir, "items", "items.json"),
		Bids:   filepath.Join(dir, "bids.json"),
		Images: filepath.Join(dir, "images"),
	})
	svc := NewService(st, WithPublisher(&recordingPublisher{}))

	req := models.CreateLotRequest{Name: "Painting", StartPrice: 100, Increment: 10, EndTime: "2099-05-03T09:00:00"}
	_, err := svc.CreateLot(context.Background(), "admin", req, &ImageUpload{Filename: "photo.png", Data: bytes.NewReader([]byte("png-bytes"))})
	check.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "images", "item_1.png"))
	check.True(t, os.IsNotExist(err))
}

func TestPlaceBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createLot(t, "Vase", 10, 2)

	v, bid, err := f.svc.PlaceBid(ctx, "item_1", "alice", 12)
	check.NoError(t, err)
	check.Equal(t, 12.0, bid.Amount)
	check.Equal(t, "alice", v.Leader)
	check.Equal(t, 14.0, v.NextMinBid)
	check.Equal(t, 1, v.BidCount)

	_, _, err = f.svc.PlaceBid(ctx, "item_1", "bob", 13.99)
	check.True(t, errors.Is(err, ErrBidTooLow))

	_, bid, err = f.svc.PlaceBid(ctx, "item_1", "bob", 0)
	check.NoError(t, err)
	check.Equal(t, 14.0, bid.Amount)

	// amounts are kept in cents
	_, bid, err = f.svc.PlaceBid(ctx, "item_1", "carol", 20.004)
	check.NoError(t, err)
	check.Equal(t, 20.0, bid.Amount)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, _, err = f.svc.PlaceBid(ctx, "item_1", "dave", bad)
		check.True(t, errors.Is(err, ErrInvalidAmount))
	}

	_, _, err = f.svc.PlaceBid(ctx, "item_9", "dave", 50)
	check.True(t, errors.Is(err, ErrLotNotFound))

	h, err := f.svc.BidHistory(ctx, "item_1")
	check.NoError(t, err)
	check.Equal(t, 3, len(h.Bids))
	check.Equal(t, "Vase", h.LotName)
	check.Equal(t, "carol", h.Bids[2].User)
}

func TestPlaceBid_ClosedAtEndTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createLot(t, "Vase", 10, 1)

	f.clock.Advance(6 * time.Hour) // exactly the end time
	_, _, err := f.svc.PlaceBid(ctx, "item_1", "alice", 11)
	check.True(t, errors.Is(err, ErrAuctionClosed))

	lot, err := f.svc.GetLot(ctx, "item_1")
	check.NoError(t, err)
	check.False(t, lot.Open)
}

func TestPlaceBid_FixedIncrement(t *testing.T) {
	f := newFixture(t, WithPricer(FixedIncrement{}))
	ctx := context.Background()
	f.createLot(t, "Clock", 10, 5)

	_, bid, err := f.svc.PlaceBid(ctx, "item_1", "alice", 99)
	check.NoError(t, err)
	check.Equal(t, 15.0, bid.Amount)

	v, _, err := f.svc.PlaceBid(ctx, "item_1", "bob", 0)
	check.NoError(t, err)
	check.Equal(t, 20.0, v.CurrentPrice)
	check.Equal(t, 25.0, v.NextMinBid)
}

func TestPlaceBid_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createLot(t, "Vase", 10, 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.svc.PlaceBid(ctx, "item_1", "bidder", 0)
		}()
	}
	wg.Wait()

	h, err := f.svc.BidHistory(ctx, "item_1")
	check.NoError(t, err)
	check.Equal(t, 20, len(h.Bids))
	for i, b := range h.Bids {
		check.Equal(t, float64(11+i), b.Amount)
	}
}

func TestUpdateLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createLot(t, "Vase", 10, 1)

	start := 25.0
	end := "2026-05-02T12:00:00"
	v, err := f.svc.UpdateLot(ctx, "admin", "item_1", models.UpdateLotRequest{StartPrice: &start, EndTime: &end})
	check.NoError(t, err)
	check.Equal(t, 25.0, v.StartPrice)
	check.Equal(t, "Vase", v.Name)
	check.Equal(t, end, v.EndTime.String())

	_, err = f.svc.UpdateLot(ctx, "admin", "item_7", models.UpdateLotRequest{StartPrice: &start})
	check.True(t, errors.Is(err, ErrLotNotFound))

	low := 0.5
	_, err = f.svc.UpdateLot(ctx, "admin", "item_1", models.UpdateLotRequest{Increment: &low})
	check.True(t, errors.Is(err, ErrInvalidLot))
}

func TestSettleExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createLot(t, "Vase", 10, 1)
	f.createLot(t, "Chair", 20, 1)

	_, _, err := f.svc.PlaceBid(ctx, "item_1", "alice", 30)
	check.NoError(t, err)
	_, _, err = f.svc.PlaceBid(ctx, "item_1", "bob", 31)
	check.NoError(t, err)

	settled, err := f.svc.SettleExpired(ctx)
	check.NoError(t, err)
	check.Equal(t, 0, len(settled))

	f.clock.Advance(7 * time.Hour)
	settled, err = f.svc.SettleExpired(ctx)
	check.NoError(t, err)
	check.Equal(t, 2, len(settled))

	check.Equal(t, models.LotStatusSold, settled[0].Status)
	check.Equal(t, "bob", settled[0].Winner)
	check.Equal(t, 31.0, settled[0].FinalPrice)
	check.NotNil(t, settled[0].SettledAt)
	check.Equal(t, models.LotStatusUnsold, settled[1].Status)
	check.Equal(t, "", settled[1].Winner)

	// settling again is a no-op
	settled, err = f.svc.SettleExpired(ctx)
	check.NoError(t, err)
	check.Equal(t, 0, len(settled))

	// settled lots reject edits and bids even if the end time moves
	end := "2026-06-01T00:00:00"
	_, err = f.svc.UpdateLot(ctx, "admin", "item_1", models.UpdateLotRequest{EndTime: &end})
	check.True(t, errors.Is(err, ErrAuctionClosed))

	// state survives a fresh service over the same files
	fresh := NewService(f.store, WithClock(f.clock))
	lot, err := fresh.GetLot(ctx, "item_1")
	check.NoError(t, err)
	check.Equal(t, "bob", lot.Winner)

	types := f.pub.types()
	check.Equal(t, events.LotSettled, types[len(types)-1])
}

func TestAllBidHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.svc.AllBidHistory(ctx)
	check.NoError(t, err)
	check.Equal(t, 0, len(all))

	for i := 0; i < 10; i++ {
		f.createLot(t, "Lot", 1, 1)
	}
	_, _, err = f.svc.PlaceBid(ctx, "item_10", "alice", 0)
	check.NoError(t, err)
	_, _, err = f.svc.PlaceBid(ctx, "item_2", "bob", 0)
	check.NoError(t, err)

	all, err = f.svc.AllBidHistory(ctx)
	check.NoError(t, err)
	check.Equal(t, 2, len(all))
	check.Equal(t, "item_2", all[0].LotID)
	check.Equal(t, "item_10", all[1].LotID)

	_, err = f.svc.BidHistory(ctx, "item_42")
	check.True(t, errors.Is(err, ErrLotNotFound))
}
