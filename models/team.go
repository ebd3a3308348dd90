package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team is a participant in one room. Budget is the total cap, only editable
// by the room owner; a present PinHash means the seat has been claimed.
type Team struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;primaryKey;<-:create"`
	RoomID      uuid.UUID `gorm:"type:uuid;not null;index;<-:create"`
	Name        string    `gorm:"type:varchar(255);not null"`
	OwnerName   string    `gorm:"type:varchar(255)"`
	PinHash     *string   `gorm:"type:text"`
	Budget      int64     `gorm:"not null"`
	RosterSpots int       `gorm:"not null"`

	Room Room
	Bids []Bid
}
