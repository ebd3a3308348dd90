package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"capdraft/models"
)

// memStore is an in-memory Store with copy-on-write transactions: fn runs
// against clones and the swap only happens on success, so an abort leaves no
// partial writes. Atomic holds the store mutex for the whole unit of work,
// which is the serialization guarantee the real store provides with row
// locks.
type memStore struct {
	mu            sync.Mutex
	rooms         map[uuid.UUID]models.Room
	teams         map[uuid.UUID]models.Team
	items         map[uuid.UUID]models.Item
	bids          map[uuid.UUID]models.Bid
	notifications []models.Notification

	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		rooms: make(map[uuid.UUID]models.Room),
		teams: make(map[uuid.UUID]models.Team),
		items: make(map[uuid.UUID]models.Item),
		bids:  make(map[uuid.UUID]models.Bid),
	}
}

func (s *memStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	tx := &memTx{
		items:         cloneMap(s.items),
		bids:          cloneMap(s.bids),
		rooms:         s.rooms,
		teams:         s.teams,
		notifications: append([]models.Notification(nil), s.notifications...),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.items = tx.items
	s.bids = tx.bids
	s.notifications = tx.notifications
	return nil
}

func (s *memStore) ItemState(ctx context.Context, itemID uuid.UUID) (*ItemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	state := &ItemState{
		ItemID:        item.ID,
		Status:        item.Status,
		WinningTeamID: item.WinningTeamID,
		ContractYears: item.ContractYears,
		ExpiresAt:     item.ExpiresAt,
	}
	if item.WinningBidID != nil {
		bid := s.bids[*item.WinningBidID]
		state.WinningBidAmount = &bid.Amount
	}
	return state, nil
}

func (s *memStore) ExpiredItems(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, item := range s.items {
		if item.Status == models.ItemNominated && item.ExpiresAt != nil && !item.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) addRoom(room models.Room) {
	s.rooms[room.ID] = room
}

func (s *memStore) addTeam(team models.Team) {
	s.teams[team.ID] = team
}

func (s *memStore) addItem(item models.Item) {
	s.items[item.ID] = item
}

func (s *memStore) addBid(bid models.Bid) {
	s.bids[bid.ID] = bid
}

func (s *memStore) item(id uuid.UUID) models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *memStore) bid(id uuid.UUID) models.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bids[id]
}

func (s *memStore) notificationsFor(teamID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.TeamID == teamID {
			out = append(out, n)
		}
	}
	return out
}

type memTx struct {
	rooms         map[uuid.UUID]models.Room
	teams         map[uuid.UUID]models.Team
	items         map[uuid.UUID]models.Item
	bids          map[uuid.UUID]models.Bid
	notifications []models.Notification
}

func (t *memTx) Room(id uuid.UUID) (*models.Room, error) {
	room, ok := t.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &room, nil
}

func (t *memTx) Team(id uuid.UUID) (*models.Team, error) {
	team, ok := t.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &team, nil
}

func (t *memTx) ItemForUpdate(id uuid.UUID) (*models.Item, error) {
	item, ok := t.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if item.WinningBidID != nil {
		bid := t.bids[*item.WinningBidID]
		item.WinningBid = &bid
	}
	return &item, nil
}

func (t *memTx) TeamHoldings(teamID uuid.UUID) ([]Holding, error) {
	var holdings []Holding
	for _, item := range t.items {
		if item.WinningTeamID == nil || *item.WinningTeamID != teamID {
			continue
		}
		if item.Status != models.ItemNominated && item.Status != models.ItemSold {
			continue
		}
		var amount int64
		if item.WinningBidID != nil {
			amount = t.bids[*item.WinningBidID].Amount
		}
		holdings = append(holdings, Holding{ItemID: item.ID, Status: item.Status, Amount: amount})
	}
	return holdings, nil
}

func (t *memTx) ValidBids(itemID uuid.UUID, exclude uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	for _, bid := range t.bids {
		if bid.ItemID == itemID && bid.Status == models.BidValid && bid.ID != exclude {
			bids = append(bids, bid)
		}
	}
	return bids, nil
}

func (t *memTx) CreateBid(bid *models.Bid) error {
	t.bids[bid.ID] = *bid
	return nil
}

func (t *memTx) SaveItem(item *models.Item) error {
	saved := *item
	saved.WinningBid = nil
	t.items[item.ID] = saved
	return nil
}

func (t *memTx) UpdateBidStatus(id uuid.UUID, status models.BidStatus) error {
	bid, ok := t.bids[id]
	if !ok {
		return ErrNotFound
	}
	bid.Status = status
	t.bids[id] = bid
	return nil
}

func (t *memTx) CreateNotification(n *models.Notification) error {
	t.notifications = append(t.notifications, *n)
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
