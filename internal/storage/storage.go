package storage

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"salon_queue/internal/config"
	"salon_queue/internal/models"
)

func ConnectDatabase(cfg config.Postgres, logger *logrus.Logger) (*gorm.DB, error) {
	newLogger := gormLogger.New(
		logger,
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, errors.Wrap(err, "storage: connect to postgres")
	}

	logger.WithField("host", cfg.Host).Info("storage: connected to postgres")
	return db, nil
}

// Migrate creates the queue tables and seeds the singleton settings row.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Profile{}, &models.QueueEntry{}, &models.QueueSettings{}); err != nil {
		return errors.Wrap(err, "storage: migrate")
	}
	settings := models.QueueSettings{}
	if err := db.FirstOrCreate(&settings, models.QueueSettings{ID: models.SettingsID}).Error; err != nil {
		return errors.Wrap(err, "storage: seed queue settings")
	}
	return nil
}

func InitRedis(ctx context.Context, cfg config.Redis, logger *logrus.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "storage: ping redis")
	}
	logger.WithField("addr", cfg.Addr).Info("storage: connected to redis")
	return rdb, nil
}
