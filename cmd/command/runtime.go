package command

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"salon_queue/internal/config"
	"salon_queue/internal/notify"
	"salon_queue/internal/queue"
	"salon_queue/internal/secure"
	"salon_queue/internal/storage"
)

// runtime is the engine plus the change feed its writes are announced on.
type runtime struct {
	engine  *queue.Engine
	feed    storage.ChangeFeed
	closers []func() error
}

func (rt *runtime) Close(logger *logrus.Logger) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			logger.WithError(err).Warn("command: close failed")
		}
	}
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*runtime, error) {
	rt := &runtime{}

	var (
		store    queue.Store
		profiles queue.ProfileLookup
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("command: STORE_DRIVER=memory, queue state is lost on restart")
		feed := storage.NewMemFeed()
		mem := storage.NewMemStore(feed)
		rt.feed, store, profiles = feed, mem, mem

	case config.DriverPostgres:
		db, err := storage.ConnectDatabase(cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "command: postgres handle")
		}
		rt.closers = append(rt.closers, sqlDB.Close)

		var publisher storage.Publisher
		if cfg.Redis.Addr == "" {
			logger.Warn("command: REDIS_ADDR is empty, change feed is local to this process")
			feed := storage.NewMemFeed()
			rt.feed, publisher = feed, feed
		} else {
			rdb, err := storage.InitRedis(ctx, cfg.Redis, logger)
			if err != nil {
				rt.Close(logger)
				return nil, err
			}
			rt.closers = append(rt.closers, rdb.Close)
			feed := storage.NewRedisFeed(rdb, logger)
			rt.feed, publisher = feed, feed
		}

		pg := storage.NewQueueStore(db, publisher, logger)
		store, profiles = pg, pg
	}

	if cfg.EncryptionKey == "" {
		logger.Warn("command: ENCRYPTION_KEY is empty, contact details are stored as given")
	}
	cipher := secure.New(cfg.EncryptionKey)

	client := &http.Client{Timeout: cfg.Notify.Timeout}
	sms := notify.NewSmsGateway(cfg.Notify.SmsAPIKey, cfg.Notify.SmsBaseURL, cfg.Notify.SmsSenderName, client, logger)
	email := notify.NewEmailGateway(cfg.Notify.BrevoAPIKey, cfg.Notify.BrevoBaseURL,
		cfg.Notify.EmailSenderName, cfg.Notify.EmailSenderAddress, client, logger)
	dispatcher := notify.NewDispatcher(sms, email, cfg.Notify.Timeout, logger)

	rt.engine = queue.NewEngine(store, profiles, cipher, dispatcher, logger)
	return rt, nil
}
