package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidValid     BidStatus = "VALID"
	BidRetracted BidStatus = "RETRACTED"
	BidVoid      BidStatus = "VOID"
)

// Bid is an amount-plus-duration offer by a team on an item. Immutable once
// created except for Status, which only moves VALID -> RETRACTED or
// VALID -> VOID.
type Bid struct {
	gorm.Model

	ID            uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	ItemID        uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	TeamID        uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Amount        int64     `gorm:"not null;<-:create"`
	ContractYears int       `gorm:"not null;<-:create"`
	Status        BidStatus `gorm:"type:varchar(16);not null"`
	PlacedAt      time.Time `gorm:"type:timestamp with time zone;not null;<-:create"`

	Item Item
	Team Team
}
