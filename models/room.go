package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomDraft     RoomStatus = "DRAFT"
	RoomOpen      RoomStatus = "OPEN"
	RoomPaused    RoomStatus = "PAUSED"
	RoomCompleted RoomStatus = "COMPLETED"
)

// Room is one auction instance. The owner authenticates admin operations with
// the passcode recorded at creation; settings are a JSON blob so the owner can
// edit rules without a schema change.
type Room struct {
	gorm.Model

	ID       uuid.UUID    `gorm:"type:uuid;primaryKey;<-:create"`
	Name     string       `gorm:"type:varchar(255);not null"`
	Passcode string       `gorm:"type:varchar(255);not null;<-:create"`
	Status   RoomStatus   `gorm:"type:varchar(16);not null"`
	Settings RoomSettings `gorm:"serializer:json"`

	Teams []Team
	Items []Item
}
