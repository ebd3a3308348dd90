package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"capdraft/models"
)

type EventType string

const (
	EventOutbid         EventType = "OUTBID"
	EventWinnerRestored EventType = "WINNER_RESTORED"
	EventItemSold       EventType = "ITEM_SOLD"
)

// Event is the fire-and-forget message handed to the notification sink after
// a successful commit. Delivery and ordering are not guaranteed.
type Event struct {
	Type    EventType `msgpack:"type"`
	RoomID  uuid.UUID `msgpack:"roomId"`
	ItemID  uuid.UUID `msgpack:"itemId"`
	TeamID  uuid.UUID `msgpack:"teamId"` // recipient
	Amount  int64     `msgpack:"amount"`
	Message string    `msgpack:"message"`
	At      time.Time `msgpack:"at"`
}

type Sink interface {
	Publish(event Event) error
}

// Receipt acknowledges an accepted bid.
type Receipt struct {
	BidID       uuid.UUID
	Amount      int64
	NextMinimum int64
	ExpiresAt   time.Time
}

type processorOptions struct {
	sink   Sink
	now    func() time.Time
	logger *slog.Logger
}

type ProcessorOption func(*processorOptions)

func WithSink(sink Sink) ProcessorOption {
	return func(o *processorOptions) { o.sink = sink }
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(o *processorOptions) { o.now = now }
}

func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(o *processorOptions) { o.logger = logger }
}

// Processor is the transactional core of the auction. Every mutation runs as
// one atomic unit of work against the store; the sink is only called after a
// successful commit.
type Processor struct {
	store  Store
	sink   Sink
	now    func() time.Time
	logger *slog.Logger
}

func NewProcessor(store Store, opts ...ProcessorOption) *Processor {
	options := processorOptions{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Processor{
		store:  store,
		sink:   options.sink,
		now:    options.now,
		logger: options.logger.With(slog.String("caller", "Processor")),
	}
}

// PlaceBid validates and commits a bid. Preconditions are checked in order
// inside the transaction: room open, item available, increment rule, contract
// rule, budget, roster capacity. Any failure aborts with no partial writes.
func (p *Processor) PlaceBid(ctx context.Context, roomID, itemID, teamID uuid.UUID, amount int64, contractYears int) (*Receipt, error) {
	const op = "PlaceBid"
	var (
		receipt *Receipt
		events  []Event
	)
	err := p.store.Atomic(ctx, func(tx Tx) error {
		room, err := p.openRoom(tx, roomID)
		if err != nil {
			return err
		}
		item, err := tx.ItemForUpdate(itemID)
		if errors.Is(err, ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if item.RoomID != roomID || (item.Status != models.ItemPending && item.Status != models.ItemNominated) {
			return ErrItemUnavailable
		}

		var currentHigh int64
		if item.WinningBid != nil && item.WinningBid.Status == models.BidValid {
			currentHigh = item.WinningBid.Amount
		}
		if err := CheckIncrement(currentHigh, amount, room.Settings); err != nil {
			return err
		}
		if err := CheckContract(room.Settings, amount, contractYears); err != nil {
			return err
		}

		team, err := tx.Team(teamID)
		if errors.Is(err, ErrNotFound) {
			return ErrTeamNotFound
		}
		if err != nil {
			return err
		}
		if team.RoomID != roomID {
			return ErrTeamNotFound
		}
		holdings, err := tx.TeamHoldings(teamID)
		if err != nil {
			return err
		}
		ledger := BuildLedger(team, holdings, itemID)
		if ledger.Available() < amount {
			return &InsufficientBudgetError{Available: ledger.Available(), Requested: amount}
		}
		alreadyLeading := item.WinningTeamID != nil && *item.WinningTeamID == teamID
		if !alreadyLeading && ledger.SpotsRemaining() < 1 {
			return ErrNoRosterSpots
		}

		now := p.now()
		bid := &models.Bid{
			ID:            uuid.New(),
			ItemID:        itemID,
			TeamID:        teamID,
			Amount:        amount,
			ContractYears: contractYears,
			Status:        models.BidValid,
			PlacedAt:      now,
		}
		if err := tx.CreateBid(bid); err != nil {
			return err
		}

		previousLeader := item.WinningTeamID
		expires := now.Add(room.Settings.Timer())
		leaderID := teamID
		years := contractYears
		item.Status = models.ItemNominated
		item.WinningBidID = &bid.ID
		item.WinningTeamID = &leaderID
		item.ContractYears = &years
		item.ExpiresAt = &expires
		item.WinningBid = bid
		if err := tx.SaveItem(item); err != nil {
			return err
		}

		if previousLeader != nil && *previousLeader != teamID {
			message := fmt.Sprintf("You were outbid on %s: %s now leads at %d", item.Name, team.Name, amount)
			n := &models.Notification{
				ID:      uuid.New(),
				TeamID:  *previousLeader,
				ItemID:  &item.ID,
				Type:    models.NotificationOutbid,
				Message: message,
			}
			if err := tx.CreateNotification(n); err != nil {
				return err
			}
			events = append(events, Event{
				Type:    EventOutbid,
				RoomID:  roomID,
				ItemID:  itemID,
				TeamID:  *previousLeader,
				Amount:  amount,
				Message: message,
				At:      now,
			})
		}

		receipt = &Receipt{
			BidID:       bid.ID,
			Amount:      amount,
			NextMinimum: MinimumBid(amount, room.Settings),
			ExpiresAt:   expires,
		}
		return nil
	})
	if err != nil {
		return nil, wrapTransient(err)
	}
	p.logger.Info("bid accepted",
		slog.String("op", op),
		slog.String("itemID", itemID.String()),
		slog.String("teamID", teamID.String()),
		slog.Int64("amount", amount))
	p.emit(events)
	return receipt, nil
}

// RetractBid removes an item's current winning bid and cascades: the highest
// remaining valid bid is promoted with a fresh full countdown, or the item is
// fully reset to PENDING when none remains. Admin-only; the caller is
// responsible for authorization.
func (p *Processor) RetractBid(ctx context.Context, roomID, itemID uuid.UUID) error {
	const op = "RetractBid"
	var events []Event
	err := p.store.Atomic(ctx, func(tx Tx) error {
		room, err := tx.Room(roomID)
		if errors.Is(err, ErrNotFound) {
			return ErrRoomNotOpen
		}
		if err != nil {
			return err
		}
		item, err := tx.ItemForUpdate(itemID)
		if errors.Is(err, ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if item.RoomID != roomID {
			return ErrItemUnavailable
		}
		// Retraction only ever targets the current leader; an item without
		// one has nothing to retract.
		if item.WinningBidID == nil {
			return ErrItemUnavailable
		}
		retractedID := *item.WinningBidID
		if err := tx.UpdateBidStatus(retractedID, models.BidRetracted); err != nil {
			return err
		}

		remaining, err := tx.ValidBids(itemID, retractedID)
		if err != nil {
			return err
		}
		next := ResolveNextLeader(remaining)
		if next == nil {
			item.Status = models.ItemPending
			item.WinningBidID = nil
			item.WinningTeamID = nil
			item.ContractYears = nil
			item.ExpiresAt = nil
			item.WinningBid = nil
			return tx.SaveItem(item)
		}

		now := p.now()
		// A restored leader gets a full window, not the remaining one.
		expires := now.Add(room.Settings.Timer())
		leaderID := next.TeamID
		years := next.ContractYears
		item.Status = models.ItemNominated
		item.WinningBidID = &next.ID
		item.WinningTeamID = &leaderID
		item.ContractYears = &years
		item.ExpiresAt = &expires
		item.WinningBid = next
		if err := tx.SaveItem(item); err != nil {
			return err
		}

		message := fmt.Sprintf("Your bid of %d on %s was restored after the leading bid was retracted", next.Amount, item.Name)
		n := &models.Notification{
			ID:      uuid.New(),
			TeamID:  next.TeamID,
			ItemID:  &item.ID,
			Type:    models.NotificationWinnerRestored,
			Message: message,
		}
		if err := tx.CreateNotification(n); err != nil {
			return err
		}
		events = append(events, Event{
			Type:    EventWinnerRestored,
			RoomID:  roomID,
			ItemID:  itemID,
			TeamID:  next.TeamID,
			Amount:  next.Amount,
			Message: message,
			At:      now,
		})
		return nil
	})
	if err != nil {
		return wrapTransient(err)
	}
	p.logger.Info("bid retracted", slog.String("op", op), slog.String("itemID", itemID.String()))
	p.emit(events)
	return nil
}

// MarkUnsold closes out an item that attracted no bids. Items with an active
// leader cannot be marked unsold; retract first.
func (p *Processor) MarkUnsold(ctx context.Context, roomID, itemID uuid.UUID) error {
	err := p.store.Atomic(ctx, func(tx Tx) error {
		item, err := tx.ItemForUpdate(itemID)
		if errors.Is(err, ErrNotFound) {
			return ErrItemNotFound
		}
		if err != nil {
			return err
		}
		if item.RoomID != roomID || item.Status != models.ItemPending {
			return ErrItemUnavailable
		}
		item.Status = models.ItemUnsold
		return tx.SaveItem(item)
	})
	return wrapTransient(err)
}

// FinalizeExpired transitions every NOMINATED item whose countdown has passed
// to SOLD, one item per transaction so the per-item atomic contract holds.
// Returns the number of items finalized.
func (p *Processor) FinalizeExpired(ctx context.Context) (int, error) {
	const op = "FinalizeExpired"
	ids, err := p.store.ExpiredItems(ctx, p.now())
	if err != nil {
		return 0, wrapTransient(err)
	}
	finalized := 0
	for _, id := range ids {
		var events []Event
		err := p.store.Atomic(ctx, func(tx Tx) error {
			item, err := tx.ItemForUpdate(id)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			// Re-check under the item lock: a bid committed after the scan
			// pushes the deadline out again.
			if item.Status != models.ItemNominated || item.ExpiresAt == nil || item.ExpiresAt.After(p.now()) {
				return nil
			}
			if item.WinningBidID == nil || item.WinningTeamID == nil {
				return nil
			}
			item.Status = models.ItemSold
			if err := tx.SaveItem(item); err != nil {
				return err
			}
			var amount int64
			if item.WinningBid != nil {
				amount = item.WinningBid.Amount
			}
			message := fmt.Sprintf("You won %s at %d", item.Name, amount)
			n := &models.Notification{
				ID:      uuid.New(),
				TeamID:  *item.WinningTeamID,
				ItemID:  &item.ID,
				Type:    models.NotificationItemSold,
				Message: message,
			}
			if err := tx.CreateNotification(n); err != nil {
				return err
			}
			events = append(events, Event{
				Type:    EventItemSold,
				RoomID:  item.RoomID,
				ItemID:  item.ID,
				TeamID:  *item.WinningTeamID,
				Amount:  amount,
				Message: message,
				At:      p.now(),
			})
			finalized++
			return nil
		})
		if err != nil {
			return finalized, wrapTransient(err)
		}
		p.emit(events)
	}
	if finalized > 0 {
		p.logger.Info("items finalized", slog.String("op", op), slog.Int("count", finalized))
	}
	return finalized, nil
}

// ItemState returns the read shape used by the sync view. Safe to retry on
// transient failures.
func (p *Processor) ItemState(ctx context.Context, itemID uuid.UUID) (*ItemState, error) {
	state, err := p.store.ItemState(ctx, itemID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, wrapTransient(err)
	}
	return state, nil
}

func (p *Processor) openRoom(tx Tx, roomID uuid.UUID) (*models.Room, error) {
	room, err := tx.Room(roomID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrRoomNotOpen
	}
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomOpen {
		return nil, ErrRoomNotOpen
	}
	return room, nil
}

// emit hands committed events to the sink. Publishing failures are logged and
// dropped: the transaction already committed and the durable notification row
// exists.
func (p *Processor) emit(events []Event) {
	if p.sink == nil {
		return
	}
	for _, event := range events {
		if err := p.sink.Publish(event); err != nil {
			p.logger.Warn("fail to publish event",
				slog.String("type", string(event.Type)),
				slog.Any("error", err))
		}
	}
}
