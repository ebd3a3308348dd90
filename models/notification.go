package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationOutbid         NotificationType = "OUTBID"
	NotificationWinnerRestored NotificationType = "WINNER_RESTORED"
	NotificationItemSold       NotificationType = "ITEM_SOLD"
)

// Notification is the durable record of an event addressed to a team. Rows
// are written in the same transaction as the mutation that caused them; the
// stream sink is only the fire-and-forget copy.
type Notification struct {
	gorm.Model

	ID      uuid.UUID        `gorm:"type:uuid;primaryKey;<-:create"`
	TeamID  uuid.UUID        `gorm:"type:uuid;not null;index;<-:create"`
	ItemID  *uuid.UUID       `gorm:"type:uuid;<-:create"`
	Type    NotificationType `gorm:"type:varchar(32);not null;<-:create"`
	Message string           `gorm:"type:text;not null;<-:create"`
	ReadAt  *time.Time

	Team Team
}
