package queue

import (
	"context"
	"time"

	"salon_queue/internal/models"
	"salon_queue/internal/notify"
)

// Store is the row store the engine mutates. Implementations give single-row atomicity only;
// nothing here spans several rows in one transaction except BatchUpsertEntries.
type Store interface {
	// ActiveEntries returns every active entry ordered by position ascending.
	ActiveEntries(ctx context.Context) ([]models.QueueEntry, error)
	// FrontEntry returns the active entry at position 1, or nil when there is none.
	FrontEntry(ctx context.Context) (*models.QueueEntry, error)
	Settings(ctx context.Context) (models.QueueSettings, error)

	CreateEntry(ctx context.Context, entry *models.QueueEntry) error
	// UpdateEntry applies patch to the active entry id. It reports false when no active row
	// matched, including when patch.ExpectPosition is set and the row has moved.
	UpdateEntry(ctx context.Context, id string, patch EntryPatch) (bool, error)
	BatchUpsertEntries(ctx context.Context, updates []EntryUpdate) error
	// DeactivateAll soft-deletes every active entry and returns how many rows changed.
	DeactivateAll(ctx context.Context, at time.Time) (int64, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) error
	// IncrementServing adds one to current_serving in a single write and returns the new value.
	IncrementServing(ctx context.Context, at time.Time) (int, error)

	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type EntryPatch struct {
	Deactivate bool
	// ExpectPosition, when positive, turns the update into a conditional one.
	ExpectPosition int
	UpdatedAt      time.Time
}

// EntryUpdate is one row of a renumbering batch.
type EntryUpdate struct {
	ID                string
	Position          int
	EstimatedWaitTime int
	UpdatedAt         time.Time
}

type SettingsPatch struct {
	CurrentServing *int
	IsActive       *bool
	LastReset      *time.Time
	UpdatedAt      time.Time
}

type ProfileLookup interface {
	LookupDisplayName(ctx context.Context, ownerID string) (string, error)
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) string
}

type Notifier interface {
	NowServing(ctx context.Context, payload notify.Payload) notify.Report
}
