package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salon_queue/internal/models"
	"salon_queue/internal/queue"
)

// QueueStore is the Postgres implementation of queue.Store. Every successful write is
// announced on the change feed; a failed announcement is logged and otherwise ignored.
type QueueStore struct {
	db        *gorm.DB
	publisher Publisher
	logger    *logrus.Logger
}

func NewQueueStore(db *gorm.DB, publisher Publisher, logger *logrus.Logger) *QueueStore {
	return &QueueStore{db: db, publisher: publisher, logger: logger}
}

func (s *QueueStore) ActiveEntries(ctx context.Context) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position ASC").
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (s *QueueStore) FrontEntry(ctx context.Context) (*models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND position = ?", true, 1).
		Order("created_at ASC").
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Settings reads the singleton row. Before migrate has seeded it the defaults are returned and
// nothing is written.
func (s *QueueStore) Settings(ctx context.Context) (models.QueueSettings, error) {
	var settings models.QueueSettings
	err := s.db.WithContext(ctx).
		Where("id = ?", models.SettingsID).
		Take(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.QueueSettings{ID: models.SettingsID, IsActive: true}, nil
	}
	return settings, err
}

// seedSettings creates the singleton row if it is missing. Only write paths call it.
func (s *QueueStore) seedSettings(ctx context.Context) error {
	var settings models.QueueSettings
	return s.db.WithContext(ctx).
		Where(models.QueueSettings{ID: models.SettingsID}).
		Attrs(models.QueueSettings{IsActive: true}).
		FirstOrCreate(&settings).Error
}

func (s *QueueStore) CreateEntry(ctx context.Context, entry *models.QueueEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	s.publish(ctx, models.TableQueueEntries)
	return nil
}

func (s *QueueStore) UpdateEntry(ctx context.Context, id string, patch queue.EntryPatch) (bool, error) {
	q := s.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("id = ? AND is_active = ?", id, true)
	if patch.ExpectPosition > 0 {
		q = q.Where("position = ?", patch.ExpectPosition)
	}

	fields := map[string]interface{}{"updated_at": patch.UpdatedAt}
	if patch.Deactivate {
		fields["is_active"] = false
	}

	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.publish(ctx, models.TableQueueEntries)
	return true, nil
}

// BatchUpsertEntries writes a whole renumbering pass in one transaction. Rows that went
// inactive in the meantime are left alone.
func (s *QueueStore) BatchUpsertEntries(ctx context.Context, updates []queue.EntryUpdate) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&models.QueueEntry{}).
				Where("id = ? AND is_active = ?", u.ID, true).
				Updates(map[string]interface{}{
					"position":            u.Position,
					"estimated_wait_time": u.EstimatedWaitTime,
					"updated_at":          u.UpdatedAt,
				}).Error
			if err != nil {
				return errors.Wrapf(err, "renumber entry %s", u.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, models.TableQueueEntries)
	return nil
}

func (s *QueueStore) DeactivateAll(ctx context.Context, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{"is_active": false, "updated_at": at})
	if res.Error != nil {
		return 0, res.Error
	}
	s.publish(ctx, models.TableQueueEntries)
	return res.RowsAffected, nil
}

func (s *QueueStore) UpdateSettings(ctx context.Context, patch queue.SettingsPatch) error {
	fields := map[string]interface{}{"updated_at": patch.UpdatedAt}
	if patch.CurrentServing != nil {
		fields["current_serving"] = *patch.CurrentServing
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if patch.LastReset != nil {
		fields["last_reset"] = *patch.LastReset
	}

	res := s.db.WithContext(ctx).
		Model(&models.QueueSettings{}).
		Where("id = ?", models.SettingsID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// The singleton has not been seeded yet.
		if err := s.seedSettings(ctx); err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).
			Model(&models.QueueSettings{}).
			Where("id = ?", models.SettingsID).
			Updates(fields).Error; err != nil {
			return err
		}
	}
	s.publish(ctx, models.TableQueueSettings)
	return nil
}

// IncrementServing bumps the counter in the database so overlapping advances and resets never
// write back a stale value.
func (s *QueueStore) IncrementServing(ctx context.Context, at time.Time) (int, error) {
	next, err := s.incrementServing(ctx, at)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.seedSettings(ctx); err != nil {
			return 0, err
		}
		next, err = s.incrementServing(ctx, at)
	}
	if err != nil {
		return 0, err
	}
	s.publish(ctx, models.TableQueueSettings)
	return next, nil
}

func (s *QueueStore) incrementServing(ctx context.Context, at time.Time) (int, error) {
	var settings models.QueueSettings
	res := s.db.WithContext(ctx).
		Model(&settings).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "current_serving"}}}).
		Where("id = ?", models.SettingsID).
		Updates(map[string]interface{}{
			"current_serving": gorm.Expr("current_serving + 1"),
			"updated_at":      at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return settings.CurrentServing, nil
}

func (s *QueueStore) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.QueueEntry{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	return n, err
}

func (s *QueueStore) LookupDisplayName(ctx context.Context, ownerID string) (string, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).
		Select("username").
		Where("id = ?", ownerID).
		Take(&profile).Error
	if err != nil {
		return "", errors.Wrapf(err, "storage: lookup profile %s", ownerID)
	}
	return profile.Username, nil
}

func (s *QueueStore) publish(ctx context.Context, table string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, table); err != nil {
		s.logger.WithError(err).WithField("table", table).Warn("storage: change not published")
	}
}
