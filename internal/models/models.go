package models

import "time"

// Profile mirrors the externally managed customer profile; the queue only reads the display name.
type Profile struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Username  string `gorm:"not null"`
	CreatedAt time.Time
}

func (Profile) TableName() string { return "profiles" }
