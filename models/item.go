package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemStatus string

const (
	ItemPending   ItemStatus = "PENDING"
	ItemNominated ItemStatus = "NOMINATED"
	ItemSold      ItemStatus = "SOLD"
	ItemUnsold    ItemStatus = "UNSOLD"
)

// Item is an auctionable entity. WinningTeamID and ContractYears are
// denormalized copies of the leading bid's fields and are only ever written
// in the same transaction that sets WinningBidID.
type Item struct {
	gorm.Model

	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;<-:create"`
	RoomID        uuid.UUID  `gorm:"type:uuid;not null;index;<-:create"`
	Name          string     `gorm:"type:varchar(255);not null"`
	Position      string     `gorm:"type:varchar(32)"`
	Status        ItemStatus `gorm:"type:varchar(16);not null;index"`
	WinningBidID  *uuid.UUID `gorm:"type:uuid"`
	WinningTeamID *uuid.UUID `gorm:"type:uuid;index"`
	ContractYears *int
	ExpiresAt     *time.Time `gorm:"type:timestamp with time zone"`

	Room       Room
	WinningBid *Bid `gorm:"foreignKey:WinningBidID"`
	Bids       []Bid
}
