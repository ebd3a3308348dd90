package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"capdraft/models"
)

// Holding is one item a team currently leads, with the amount of its leading
// bid. The ledger is derived entirely from these rows.
type Holding struct {
	ItemID uuid.UUID
	Status models.ItemStatus
	Amount int64
}

// ItemState is the read shape exposed to the sync view. Eventually consistent
// with the last committed write; never authoritative for other writers.
type ItemState struct {
	ItemID           uuid.UUID
	Status           models.ItemStatus
	WinningTeamID    *uuid.UUID
	WinningBidAmount *int64
	ContractYears    *int
	ExpiresAt        *time.Time
}

// Tx is one atomic unit of work. Implementations must guarantee that
// ItemForUpdate serializes concurrent transactions touching the same item,
// and that Team does the same per team so budget aggregates cannot race.
type Tx interface {
	Room(id uuid.UUID) (*models.Room, error)
	Team(id uuid.UUID) (*models.Team, error)
	ItemForUpdate(id uuid.UUID) (*models.Item, error)
	TeamHoldings(teamID uuid.UUID) ([]Holding, error)
	ValidBids(itemID uuid.UUID, exclude uuid.UUID) ([]models.Bid, error)
	CreateBid(bid *models.Bid) error
	SaveItem(item *models.Item) error
	UpdateBidStatus(id uuid.UUID, status models.BidStatus) error
	CreateNotification(n *models.Notification) error
}

// Store is the persistence contract the processor runs against. A returned
// error from fn aborts the unit of work with no partial writes.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	ItemState(ctx context.Context, itemID uuid.UUID) (*ItemState, error)
	ExpiredItems(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}
