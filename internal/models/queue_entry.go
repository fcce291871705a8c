package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TableQueueEntries = "queue_entries"

// QueueEntry is one customer's place in the walk-in line. Served or removed entries keep
// their row with IsActive=false.
type QueueEntry struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	OwnerID string `gorm:"index;not null" json:"owner_id"`
	// Position is the 1-based rank inside the active set.
	Position int `gorm:"index;not null" json:"position"`
	// EstimatedWaitTime is in minutes and derived from Position.
	EstimatedWaitTime int `gorm:"not null;default:0" json:"estimated_wait_time"`
	// Contact fields hold ciphertext at rest.
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	IsActive     bool      `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (QueueEntry) TableName() string { return TableQueueEntries }

func (e *QueueEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
