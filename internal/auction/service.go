// Gavel - Online Auction House
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gavel

// Package auction implements lots, bidding and settlement on top of the flat
// JSON store.
//
// A lot is open while it is unsettled and the clock is before its end time.
// A bid is accepted when the lot is open and the amount is at least the
// current price plus the lot's increment. When a lot's clock expires the last
// bidder wins at the current price; a lot without bids closes unsold.
package auction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/gavel/internal/events"
	"github.com/tomtom215/gavel/internal/logging"
	"github.com/tomtom215/gavel/internal/metrics"
	"github.com/tomtom215/gavel/internal/models"
	"github.com/tomtom215/gavel/internal/store"
	"github.com/tomtom215/gavel/internal/validation"
)

// SystemActor is recorded as the actor of settlement events.
const SystemActor = "system"

const defaultMaxImageBytes = 10 << 20

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Publisher receives domain events after each committed change.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// ImageUpload is an image attached to a new lot.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// Service is the auction domain service.
type Service struct {
	store         *store.Store
	pricer        Pricer
	clock         Clock
	publisher     Publisher
	maxImageBytes int64
}

// Option configures a Service.
type Option func(*Service)

func WithPricer(p Pricer) Option { return func(s *Service) { s.pricer = p } }

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithMaxImageBytes(n int64) Option { return func(s *Service) { s.maxImageBytes = n } }

// NewService returns a service over st. Defaults: HighestBid pricing, wall
// clock, no event publisher.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		pricer:        HighestBid{},
		clock:         SystemClock{},
		maxImageBytes: defaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pricer returns the active pricing rule.
func (s *Service) Pricer() Pricer {
	return s.pricer
}

func isOpen(lot *models.Lot, now time.Time) bool {
	return !lot.Settled() && now.Before(lot.EndTime.Time)
}

func (s *Service) view(id string, lot models.Lot, bids []models.Bid, now time.Time) models.LotView {
	current := s.pricer.Current(&lot, bids)
	v := models.LotView{
		ID:           id,
		Lot:          lot,
		CurrentPrice: toFloat(current),
		NextMinBid:   toFloat(current.Add(money(lot.Increment))),
		Open:         isOpen(&lot, now),
		BidCount:     len(bids),
	}
	if n := len(bids); n > 0 {
		v.Leader = bids[n-1].User
	}
	return v
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("type", string(ev.Type)).Str("lot", ev.LotID).Msg("Failed to publish auction event")
	}
}

func storeError(op string, err error) {
	// domain rejections are not storage failures
	if errors.Is(err, ErrLotNotFound) || errors.Is(err, ErrAuctionClosed) ||
		errors.Is(err, ErrBidTooLow) || errors.Is(err, ErrInvalidLot) ||
		errors.Is(err, context.Canceled) {
		return
	}
	metrics.StoreErrors.WithLabelValues(op).Inc()
}

// CreateLot adds a lot with the next free item_<n> ID and saves the optional image.
func (s *Service) CreateLot(ctx context.Context, actor string, req models.CreateLotRequest, img *ImageUpload) (*models.LotView, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLot, verr.Error())
	}
	end, err := models.ParseISOTime(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLot, err)
	}

	var ext string
	if img != nil {
		if ext, err = store.ImageExtension(img.Filename); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidLot, err)
		}
	}

	now := s.clock.Now()
	var (
		view  models.LotView
		saved string
	)
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		id := tx.NextLotID()
		lot := models.Lot{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			StartPrice:  toFloat(money(req.StartPrice)),
			Increment:   toFloat(money(req.Increment)),
			EndTime:     end,
		}
		if img != nil {
			path, err := s.store.SaveImage(id, ext, img.Data, s.maxImageBytes)
			if err != nil {
				if errors.Is(err, store.ErrImageTooLarge) {
					return fmt.Errorf("%w: %w", ErrInvalidLot, err)
				}
				return err
			}
			saved = path
			lot.Image = path
		}
		tx.PutLot(id, lot)
		view = s.view(id, lot, nil, now)
		return nil
	})
	if err != nil {
		// the lot was never written, so its image must not outlive it
		if derr := s.store.DeleteImage(saved); derr != nil {
			logging.Ctx(ctx).Warn().Err(derr).Str("path", saved).Msg("Failed to remove image of unsaved lot")
		}
		storeError("create_lot", err)
		return nil, err
	}

	metrics.RecordLotOperation("create")
	logging.Ctx(ctx).Info().Str("lot", view.ID).Str("name", view.Name).Msg("Lot created")
	s.publish(ctx, events.Event{Type: events.LotCreated, LotID: view.ID, Actor: actor, Lot: &view})
	return &view, nil
}

// UpdateLot edits a lot. Settled lots cannot be edited.
func (s *Service) UpdateLot(ctx context.Context, actor, id string, req models.UpdateLotRequest) (*models.LotView, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLot, verr.Error())
	}
	var end *models.ISOTime
	if req.EndTime != nil {
		t, err := models.ParseISOTime(*req.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLot, err)
		}
		end = &t
	}

	now := s.clock.Now()
	var view models.LotView
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		lot, ok := tx.Lots[id]
		if !ok {
			return ErrLotNotFound
		}
		if lot.Settled() {
			return fmt.Errorf("%w: lot %s is already settled", ErrAuctionClosed, id)
		}
		if req.Name != nil {
			lot.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			lot.Description = *req.Description
		}
		if req.StartPrice != nil {
			lot.StartPrice = toFloat(money(*req.StartPrice))
		}
		if req.Increment != nil {
			lot.Increment = toFloat(money(*req.Increment))
		}
		if end != nil {
			lot.EndTime = *end
		}
		tx.PutLot(id, lot)
		view = s.view(id, lot, tx.Bids[id], now)
		return nil
	})
	if err != nil {
		storeError("update_lot", err)
		return nil, err
	}

	metrics.RecordLotOperation("update")
	logging.Ctx(ctx).Info().Str("lot", id).Msg("Lot updated")
	s.publish(ctx, events.Event{Type: events.LotUpdated, LotID: id, Actor: actor, Lot: &view})
	return &view, nil
}

// DeleteLot removes a lot, its bid history and its image.
func (s *Service) DeleteLot(ctx context.Context, actor, id string) error {
	now := s.clock.Now()
	var view models.LotView
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		lot, ok := tx.Lots[id]
		if !ok {
			return ErrLotNotFound
		}
		view = s.view(id, lot, tx.Bids[id], now)
		tx.DeleteLot(id)
		return nil
	})
	if err != nil {
		storeError("delete_lot", err)
		return err
	}

	if err := s.store.DeleteImage(view.Image); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("lot", id).Msg("Failed to delete lot image")
	}

	metrics.RecordLotOperation("delete")
	logging.Ctx(ctx).Info().Str("lot", id).Msg("Lot deleted")
	s.publish(ctx, events.Event{Type: events.LotDeleted, LotID: id, Actor: actor, Lot: &view})
	return nil
}

// ListLots returns every lot ordered by ID number.
func (s *Service) ListLots(ctx context.Context) ([]models.LotView, error) {
	now := s.clock.Now()
	views := make([]models.LotView, 0)
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		for _, id := range snap.LotIDs() {
			views = append(views, s.view(id, snap.Lots[id], snap.Bids[id], now))
		}
		return nil
	})
	if err != nil {
		storeError("list_lots", err)
		return nil, err
	}
	return views, nil
}

// GetLot returns one lot.
func (s *Service) GetLot(ctx context.Context, id string) (*models.LotView, error) {
	now := s.clock.Now()
	var view models.LotView
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		lot, ok := snap.Lots[id]
		if !ok {
			return ErrLotNotFound
		}
		view = s.view(id, lot, snap.Bids[id], now)
		return nil
	})
	if err != nil {
		storeError("get_lot", err)
		return nil, err
	}
	return &view, nil
}

// PlaceBid records a bid by username. An amount of zero bids the minimum.
func (s *Service) PlaceBid(ctx context.Context, lotID, username string, amount float64) (*models.LotView, *models.Bid, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		metrics.RecordBidRejected(RejectionReason(ErrInvalidAmount))
		return nil, nil, ErrInvalidAmount
	}
	requested := money(amount)

	now := s.clock.Now()
	var (
		view models.LotView
		bid  models.Bid
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		lot, ok := tx.Lots[lotID]
		if !ok {
			return ErrLotNotFound
		}
		if !isOpen(&lot, now) {
			return ErrAuctionClosed
		}
		accepted, err := s.pricer.Accept(&lot, tx.Bids[lotID], requested)
		if err != nil {
			return err
		}
		bid = models.Bid{User: username, Amount: toFloat(accepted), Timestamp: models.NewISOTime(now)}
		tx.AppendBid(lotID, bid)
		view = s.view(lotID, lot, tx.Bids[lotID], now)
		return nil
	})
	if err != nil {
		metrics.RecordBidRejected(RejectionReason(err))
		storeError("place_bid", err)
		return nil, nil, err
	}

	metrics.RecordBid(bid.Amount)
	logging.Ctx(ctx).Info().Str("lot", lotID).Float64("amount", bid.Amount).Msg("Bid placed")
	s.publish(ctx, events.Event{Type: events.BidPlaced, LotID: lotID, Actor: username, Lot: &view, Bid: &bid})
	return &view, &bid, nil
}

// BidHistory returns the bids on one lot in arrival order.
func (s *Service) BidHistory(ctx context.Context, lotID string) (*models.LotBids, error) {
	var out models.LotBids
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		lot, lotOK := snap.Lots[lotID]
		bids, bidsOK := snap.Bids[lotID]
		if !lotOK && !bidsOK {
			return ErrLotNotFound
		}
		out = models.LotBids{LotID: lotID, LotName: lot.Name, Bids: append([]models.Bid{}, bids...)}
		return nil
	})
	if err != nil {
		storeError("bid_history", err)
		return nil, err
	}
	return &out, nil
}

// AllBidHistory returns the bid history of every lot that has an entry in
// bids.json, including entries left behind by lots removed outside the API.
func (s *Service) AllBidHistory(ctx context.Context) ([]models.LotBids, error) {
	out := make([]models.LotBids, 0)
	err := s.store.View(ctx, func(snap *store.Snapshot) error {
		ids := make([]string, 0, len(snap.Bids))
		for id := range snap.Bids {
			ids = append(ids, id)
		}
		store.SortLotIDs(ids)
		for _, id := range ids {
			out = append(out, models.LotBids{
				LotID:   id,
				LotName: snap.Lots[id].Name,
				Bids:    append([]models.Bid{}, snap.Bids[id]...),
			})
		}
		return nil
	})
	if err != nil {
		storeError("all_bid_history", err)
		return nil, err
	}
	return out, nil
}

// SettleExpired closes every unsettled lot whose end time has passed. The
// last bidder wins at the current price; lots without bids close unsold.
func (s *Service) SettleExpired(ctx context.Context) ([]models.LotView, error) {
	start := time.Now()
	now := s.clock.Now()
	settled := make([]models.LotView, 0)
	sold, unsold := 0, 0

	err := s.store.Update(ctx, func(tx *store.Tx) error {
		for _, id := range tx.LotIDs() {
			lot := tx.Lots[id]
			if lot.Settled() || now.Before(lot.EndTime.Time) {
				continue
			}
			bids := tx.Bids[id]
			at := models.NewISOTime(now)
			lot.SettledAt = &at
			if len(bids) == 0 {
				lot.Status = models.LotStatusUnsold
				unsold++
			} else {
				lot.Status = models.LotStatusSold
				lot.Winner = bids[len(bids)-1].User
				lot.FinalPrice = toFloat(s.pricer.Current(&lot, bids))
				sold++
			}
			tx.PutLot(id, lot)
			settled = append(settled, s.view(id, lot, bids, now))
		}
		return nil
	})
	if err != nil {
		storeError("settle", err)
		return nil, err
	}

	metrics.RecordSettlement(time.Since(start), sold, unsold)
	for i := range settled {
		v := settled[i]
		logging.Ctx(ctx).Info().Str("lot", v.ID).Str("status", string(v.Status)).Str("winner", v.Winner).
			Float64("final_price", v.FinalPrice).Msg("Lot settled")
		s.publish(ctx, events.Event{Type: events.LotSettled, LotID: v.ID, Actor: SystemActor, Lot: &v})
	}
	return settled, nil
}
