package storage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "realtime:"

func channelFor(table string) string { return channelPrefix + table }

// RedisFeed publishes table changes over Redis pub/sub so every server instance, and every
// dashboard attached to it, hears about writes made by any other instance.
type RedisFeed struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisFeed(client *redis.Client, logger *logrus.Logger) *RedisFeed {
	return &RedisFeed{client: client, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, table string) error {
	payload, err := json.Marshal(Change{Table: table, At: time.Now()})
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, channelFor(table), payload).Err(); err != nil {
		return errors.Wrapf(err, "storage: publish change for %s", table)
	}
	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, tables []string, fn func(Change)) (Subscription, error) {
	channels := make([]string, len(tables))
	for i, t := range tables {
		channels[i] = channelFor(t)
	}

	ps := f.client.Subscribe(ctx, channels...)
	// Receive blocks until the server confirms, so a dead connection fails here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "storage: subscribe to changes")
	}

	sub := &redisSubscription{ps: ps, done: make(chan struct{})}
	go func() {
		defer sub.closeDone()
		for msg := range ps.Channel() {
			change := Change{Table: strings.TrimPrefix(msg.Channel, channelPrefix)}
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				f.logger.WithError(err).Debug("storage: malformed change payload")
			}
			fn(change)
		}
	}()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) Done() <-chan struct{} { return s.done }

func (s *redisSubscription) closeDone() { s.once.Do(func() { close(s.done) }) }

func (s *redisSubscription) Close() error {
	err := s.ps.Close()
	s.closeDone()
	return err
}
