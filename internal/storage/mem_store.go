package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"salon_queue/internal/models"
	"salon_queue/internal/queue"
)

var ErrProfileNotFound = errors.New("storage: profile not found")

// MemStore implements queue.Store in memory. It is the STORE_DRIVER=memory backend and the
// fixture the engine tests run against.
type MemStore struct {
	mu        sync.RWMutex
	entries   map[string]models.QueueEntry
	settings  models.QueueSettings
	profiles  map[string]string
	publisher Publisher
}

func NewMemStore(publisher Publisher) *MemStore {
	return &MemStore{
		entries:   make(map[string]models.QueueEntry),
		settings:  models.QueueSettings{ID: models.SettingsID, IsActive: true},
		profiles:  make(map[string]string),
		publisher: publisher,
	}
}

// AddProfile registers a display name for an owner.
func (m *MemStore) AddProfile(ownerID, username string) {
	m.mu.Lock()
	m.profiles[ownerID] = username
	m.mu.Unlock()
}

// Put stores entry verbatim, bypassing the engine. Tests use it to build arbitrary states.
func (m *MemStore) Put(entry models.QueueEntry) models.QueueEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.entries[entry.ID] = entry
	m.mu.Unlock()
	return entry
}

// Entry returns any entry, active or not.
func (m *MemStore) Entry(id string) (models.QueueEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *MemStore) ActiveEntries(_ context.Context) ([]models.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeLocked(), nil
}

func (m *MemStore) activeLocked() []models.QueueEntry {
	out := make([]models.QueueEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemStore) FrontEntry(_ context.Context) (*models.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.activeLocked() {
		if e.Position == 1 {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *MemStore) Settings(_ context.Context) (models.QueueSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemStore) CreateEntry(ctx context.Context, entry *models.QueueEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	m.mu.Lock()
	if _, exists := m.entries[entry.ID]; exists {
		m.mu.Unlock()
		return errors.Errorf("storage: duplicate entry id %s", entry.ID)
	}
	m.entries[entry.ID] = *entry
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueEntries)
	return nil
}

func (m *MemStore) UpdateEntry(ctx context.Context, id string, patch queue.EntryPatch) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || !e.IsActive || (patch.ExpectPosition > 0 && e.Position != patch.ExpectPosition) {
		m.mu.Unlock()
		return false, nil
	}
	if patch.Deactivate {
		e.IsActive = false
	}
	e.UpdatedAt = patch.UpdatedAt
	m.entries[id] = e
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueEntries)
	return true, nil
}

func (m *MemStore) BatchUpsertEntries(ctx context.Context, updates []queue.EntryUpdate) error {
	m.mu.Lock()
	for _, u := range updates {
		e, ok := m.entries[u.ID]
		if !ok || !e.IsActive {
			continue
		}
		e.Position = u.Position
		e.EstimatedWaitTime = u.EstimatedWaitTime
		e.UpdatedAt = u.UpdatedAt
		m.entries[u.ID] = e
	}
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueEntries)
	return nil
}

func (m *MemStore) DeactivateAll(ctx context.Context, at time.Time) (int64, error) {
	var n int64
	m.mu.Lock()
	for id, e := range m.entries {
		if !e.IsActive {
			continue
		}
		e.IsActive = false
		e.UpdatedAt = at
		m.entries[id] = e
		n++
	}
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueEntries)
	return n, nil
}

func (m *MemStore) UpdateSettings(ctx context.Context, patch queue.SettingsPatch) error {
	m.mu.Lock()
	if patch.CurrentServing != nil {
		m.settings.CurrentServing = *patch.CurrentServing
	}
	if patch.IsActive != nil {
		m.settings.IsActive = *patch.IsActive
	}
	if patch.LastReset != nil {
		at := *patch.LastReset
		m.settings.LastReset = &at
	}
	m.settings.UpdatedAt = patch.UpdatedAt
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueSettings)
	return nil
}

func (m *MemStore) IncrementServing(ctx context.Context, at time.Time) (int, error) {
	m.mu.Lock()
	m.settings.CurrentServing++
	m.settings.UpdatedAt = at
	next := m.settings.CurrentServing
	m.mu.Unlock()

	m.publish(ctx, models.TableQueueSettings)
	return next, nil
}

func (m *MemStore) CountCreatedBetween(_ context.Context, from, to time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.entries {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) LookupDisplayName(_ context.Context, ownerID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.profiles[ownerID]
	if !ok {
		return "", ErrProfileNotFound
	}
	return name, nil
}

func (m *MemStore) publish(ctx context.Context, table string) {
	if m.publisher != nil {
		_ = m.publisher.Publish(ctx, table)
	}
}
