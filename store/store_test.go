package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"capdraft/engine"
	"capdraft/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)
	store := New(db)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { sqlDB.Close() })
	return store
}

type seed struct {
	room  models.Room
	teamA models.Team
	teamB models.Team
	items []models.Item
}

func seedRoom(t *testing.T, store *Store, itemCount int) seed {
	t.Helper()
	settings := models.RoomSettings{
		BudgetType:       models.BudgetSalaryCap,
		StartingBudget:   1000,
		MaxContractYears: 5,
		RosterSize:       5,
		MinIncrement:     0.15,
		OpeningBid:       1,
		TimerSeconds:     100,
		ContractLogic: models.ContractLogic{
			Enabled: true,
			Rules: []models.ContractRule{
				{MinBid: 1, Policy: models.DurationAny},
			},
		},
	}
	s := seed{
		room: models.Room{
			ID:       uuid.New(),
			Name:     "league",
			Passcode: "hunter2",
			Status:   models.RoomOpen,
			Settings: settings,
		},
	}
	require.NoError(t, store.DB().Create(&s.room).Error)
	s.teamA = models.Team{ID: uuid.New(), RoomID: s.room.ID, Name: "alpha", Budget: 1000, RosterSpots: 5}
	s.teamB = models.Team{ID: uuid.New(), RoomID: s.room.ID, Name: "bravo", Budget: 1000, RosterSpots: 5}
	require.NoError(t, store.DB().Create(&s.teamA).Error)
	require.NoError(t, store.DB().Create(&s.teamB).Error)
	for i := 0; i < itemCount; i++ {
		item := models.Item{
			ID:       uuid.New(),
			RoomID:   s.room.ID,
			Name:     "item-" + string(rune('a'+i)),
			Position: "C",
			Status:   models.ItemPending,
		}
		require.NoError(t, store.DB().Create(&item).Error)
		s.items = append(s.items, item)
	}
	return s
}

// Runs the full bid lifecycle against real SQL: place, outbid, retract with
// cascade, expire, finalize.
func TestProcessorAgainstSQL(t *testing.T) {
	store := openTestStore(t)
	s := seedRoom(t, store, 1)
	ctx := context.Background()
	itemID := s.items[0].ID

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	proc := engine.NewProcessor(store, engine.WithClock(func() time.Time { return now }))

	receipt, err := proc.PlaceBid(ctx, s.room.ID, itemID, s.teamA.ID, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(115), receipt.NextMinimum)

	now = now.Add(time.Minute)
	_, err = proc.PlaceBid(ctx, s.room.ID, itemID, s.teamB.ID, 110, 1)
	var tooLow *engine.BidTooLowError
	require.ErrorAs(t, err, &tooLow)

	now = now.Add(time.Minute)
	_, err = proc.PlaceBid(ctx, s.room.ID, itemID, s.teamB.ID, 115, 1)
	require.NoError(t, err)

	var outbid []models.Notification
	require.NoError(t, store.DB().Where("team_id = ?", s.teamA.ID).Find(&outbid).Error)
	require.Len(t, outbid, 1)
	assert.Equal(t, models.NotificationOutbid, outbid[0].Type)

	// Retract B's leading bid: A's 100 is promoted with a fresh countdown.
	now = now.Add(time.Minute)
	require.NoError(t, proc.RetractBid(ctx, s.room.ID, itemID))
	state, err := proc.ItemState(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemNominated, state.Status)
	require.NotNil(t, state.WinningTeamID)
	assert.Equal(t, s.teamA.ID, *state.WinningTeamID)
	require.NotNil(t, state.WinningBidAmount)
	assert.Equal(t, int64(100), *state.WinningBidAmount)
	require.NotNil(t, state.ExpiresAt)
	assert.WithinDuration(t, now.Add(100*time.Second), *state.ExpiresAt, time.Second)

	// Let the countdown lapse and sweep.
	now = now.Add(time.Hour)
	count, err := proc.FinalizeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	state, err = proc.ItemState(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemSold, state.Status)

	var won []models.Notification
	require.NoError(t, store.DB().
		Where("team_id = ? AND type = ?", s.teamA.ID, models.NotificationItemSold).
		Find(&won).Error)
	assert.Len(t, won, 1)
}

func TestValidBidsOrdering(t *testing.T) {
	store := openTestStore(t)
	s := seedRoom(t, store, 1)
	itemID := s.items[0].ID
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mk := func(amount int64, offset time.Duration, status models.BidStatus) models.Bid {
		bid := models.Bid{
			ID:            uuid.New(),
			ItemID:        itemID,
			TeamID:        s.teamA.ID,
			Amount:        amount,
			ContractYears: 1,
			Status:        status,
			PlacedAt:      base.Add(offset),
		}
		require.NoError(t, store.DB().Create(&bid).Error)
		return bid
	}
	mk(50, 0, models.BidValid)
	late := mk(80, time.Minute, models.BidValid)
	early := mk(80, 30*time.Second, models.BidValid)
	retracted := mk(90, 2*time.Minute, models.BidRetracted)

	err := store.Atomic(context.Background(), func(tx engine.Tx) error {
		bids, err := tx.ValidBids(itemID, retracted.ID)
		require.NoError(t, err)
		require.Len(t, bids, 3)
		assert.Equal(t, early.ID, bids[0].ID)
		assert.Equal(t, late.ID, bids[1].ID)
		assert.Equal(t, int64(50), bids[2].Amount)
		return nil
	})
	require.NoError(t, err)
}

func TestTeamHoldings(t *testing.T) {
	store := openTestStore(t)
	s := seedRoom(t, store, 4)

	lead := func(item models.Item, teamID uuid.UUID, amount int64, status models.ItemStatus) {
		bid := models.Bid{
			ID:            uuid.New(),
			ItemID:        item.ID,
			TeamID:        teamID,
			Amount:        amount,
			ContractYears: 1,
			Status:        models.BidValid,
			PlacedAt:      time.Now(),
		}
		require.NoError(t, store.DB().Create(&bid).Error)
		item.Status = status
		item.WinningBidID = &bid.ID
		item.WinningTeamID = &teamID
		require.NoError(t, store.DB().Save(&item).Error)
	}
	lead(s.items[0], s.teamA.ID, 150, models.ItemNominated)
	lead(s.items[1], s.teamA.ID, 40, models.ItemSold)
	lead(s.items[2], s.teamB.ID, 70, models.ItemNominated)
	// items[3] stays pending

	err := store.Atomic(context.Background(), func(tx engine.Tx) error {
		holdings, err := tx.TeamHoldings(s.teamA.ID)
		require.NoError(t, err)
		require.Len(t, holdings, 2)
		var locked, spent int64
		for _, h := range holdings {
			switch h.Status {
			case models.ItemNominated:
				locked += h.Amount
			case models.ItemSold:
				spent += h.Amount
			}
		}
		assert.Equal(t, int64(150), locked)
		assert.Equal(t, int64(40), spent)
		return nil
	})
	require.NoError(t, err)
}

func TestMissingRowsTranslate(t *testing.T) {
	store := openTestStore(t)
	err := store.Atomic(context.Background(), func(tx engine.Tx) error {
		_, err := tx.Room(uuid.New())
		assert.ErrorIs(t, err, engine.ErrNotFound)
		_, err = tx.Team(uuid.New())
		assert.ErrorIs(t, err, engine.ErrNotFound)
		_, err = tx.ItemForUpdate(uuid.New())
		assert.ErrorIs(t, err, engine.ErrNotFound)
		return nil
	})
	require.NoError(t, err)

	_, err = store.ItemState(context.Background(), uuid.New())
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestExpiredItems(t *testing.T) {
	store := openTestStore(t)
	s := seedRoom(t, store, 3)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	update := func(item models.Item, status models.ItemStatus, expires *time.Time) {
		item.Status = status
		item.ExpiresAt = expires
		require.NoError(t, store.DB().Save(&item).Error)
	}
	update(s.items[0], models.ItemNominated, &past)
	update(s.items[1], models.ItemNominated, &future)
	update(s.items[2], models.ItemPending, &past)

	ids, err := store.ExpiredItems(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, s.items[0].ID, ids[0])
}

func TestSyncView(t *testing.T) {
	store := openTestStore(t)
	s := seedRoom(t, store, 3)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	proc := engine.NewProcessor(store, engine.WithClock(func() time.Time { return now }))

	_, err := proc.PlaceBid(ctx, s.room.ID, s.items[0].ID, s.teamA.ID, 150, 1)
	require.NoError(t, err)
	_, err = proc.PlaceBid(ctx, s.room.ID, s.items[1].ID, s.teamB.ID, 60, 1)
	require.NoError(t, err)
	// A contests item 1 but B reclaims it, leaving A with a live losing bid.
	_, err = proc.PlaceBid(ctx, s.room.ID, s.items[1].ID, s.teamA.ID, 70, 1)
	require.NoError(t, err)
	_, err = proc.PlaceBid(ctx, s.room.ID, s.items[1].ID, s.teamB.ID, 90, 1)
	require.NoError(t, err)

	t.Run("anonymous view omits me", func(t *testing.T) {
		view, err := store.SyncView(ctx, s.room.ID, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, s.room.ID, view.Room.ID)
		assert.Equal(t, models.RoomOpen, view.Room.Status)
		assert.Len(t, view.Teams, 2)
		assert.Len(t, view.ActiveItems, 2)
		assert.Nil(t, view.Me)
	})

	t.Run("active items carry the leading bid", func(t *testing.T) {
		view, err := store.SyncView(ctx, s.room.ID, uuid.Nil)
		require.NoError(t, err)
		byID := map[uuid.UUID]ActiveItem{}
		for _, item := range view.ActiveItems {
			byID[item.ID] = item
		}
		first := byID[s.items[0].ID]
		require.NotNil(t, first.WinningBidAmount)
		assert.Equal(t, int64(150), *first.WinningBidAmount)
		require.NotNil(t, first.WinningTeamID)
		assert.Equal(t, s.teamA.ID, *first.WinningTeamID)
	})

	t.Run("me section derives the ledger", func(t *testing.T) {
		view, err := store.SyncView(ctx, s.room.ID, s.teamA.ID)
		require.NoError(t, err)
		require.NotNil(t, view.Me)
		assert.Equal(t, int64(150), view.Me.LockedBudget)
		assert.Equal(t, int64(0), view.Me.SpentBudget)
		assert.Equal(t, int64(850), view.Me.AvailableBudget)
		assert.Equal(t, 1, view.Me.SpotsUsed)
		assert.Equal(t, 4, view.Me.SpotsRemaining)
		// Both items A has live bids on, including the one B leads.
		assert.ElementsMatch(t, []uuid.UUID{s.items[0].ID, s.items[1].ID}, view.Me.ActiveItemIDs)
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := store.SyncView(ctx, s.room.ID, uuid.New())
		assert.ErrorIs(t, err, engine.ErrNotFound)
		_, err = store.SyncView(ctx, uuid.New(), uuid.Nil)
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}
