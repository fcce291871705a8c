package models

import "time"

const (
	TableQueueSettings = "queue_settings"

	// SettingsID is the fixed key of the singleton settings row.
	SettingsID = 1
)

type QueueSettings struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CurrentServing int        `gorm:"not null;default:0" json:"current_serving"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastReset      *time.Time `json:"last_reset"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (QueueSettings) TableName() string { return TableQueueSettings }
