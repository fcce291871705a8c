package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"salon_queue/internal/models"
	"salon_queue/internal/queue"
	"salon_queue/internal/storage"
)

// StateSource is the read side of the queue engine.
type StateSource interface {
	GetState(ctx context.Context) (queue.State, error)
	GetStats(ctx context.Context) (queue.Stats, error)
}

// Snapshot is the full dashboard state pushed on every refresh. Clients replace their view
// with it wholesale.
type Snapshot struct {
	Queue          []models.QueueEntry `json:"queue"`
	CurrentServing int                 `json:"currentServing"`
	Stats          queue.Stats         `json:"stats"`
	At             time.Time           `json:"at"`
}

var watchedTables = []string{models.TableQueueEntries, models.TableQueueSettings}

// Relay turns change signals into full snapshots for the hub. Push and poll are separate
// loops: the poll keeps running while the subscription is down.
type Relay struct {
	feed         storage.ChangeFeed
	source       StateSource
	hub          *Hub
	logger       *logrus.Logger
	pollInterval time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
	refresh      chan struct{}
}

type RelayOption func(*Relay)

// WithBackoff bounds the delay between resubscribe attempts.
func WithBackoff(initial, limit time.Duration) RelayOption {
	return func(r *Relay) {
		r.minBackoff, r.maxBackoff = initial, limit
	}
}

func NewRelay(feed storage.ChangeFeed, source StateSource, hub *Hub, pollInterval time.Duration, logger *logrus.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		feed:         feed,
		source:       source,
		hub:          hub,
		logger:       logger,
		pollInterval: pollInterval,
		minBackoff:   500 * time.Millisecond,
		maxBackoff:   30 * time.Second,
		refresh:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { r.subscribeLoop(ctx); return nil })
	g.Go(func() error { r.pollLoop(ctx); return nil })
	g.Go(func() error { r.refreshLoop(ctx); return nil })
	return g.Wait()
}

// trigger asks for a refresh. Signals arriving while one is pending collapse into it.
func (r *Relay) trigger() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

func (r *Relay) subscribeLoop(ctx context.Context) {
	backoff := r.minBackoff
	for {
		sub, err := r.feed.Subscribe(ctx, watchedTables, func(storage.Change) { r.trigger() })
		if err != nil {
			r.logger.WithError(err).WithField("retry_in", backoff).Warn("ws: change subscription failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
			continue
		}

		backoff = r.minBackoff
		// Anything written while we were not subscribed has to be picked up now.
		r.trigger()

		select {
		case <-ctx.Done():
			_ = sub.Close()
			return
		case <-sub.Done():
			r.logger.Warn("ws: change subscription dropped, resubscribing")
		}
	}
}

func (r *Relay) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.trigger()
		}
	}
}

func (r *Relay) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.refresh:
			msg, err := r.snapshot(ctx)
			if err != nil {
				r.logger.WithError(err).Error("ws: snapshot failed")
				continue
			}
			r.hub.Broadcast(msg)
		}
	}
}

func (r *Relay) snapshot(ctx context.Context) ([]byte, error) {
	state, err := r.source.GetState(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := r.source.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Snapshot{
		Queue:          state.Queue,
		CurrentServing: state.CurrentServing,
		Stats:          stats,
		At:             time.Now(),
	})
}

// ServeWS upgrades the request and attaches it to the hub. The new client gets the current
// snapshot straight away instead of waiting for the next change.
func (r *Relay) ServeWS(c *gin.Context) {
	welcome, err := r.snapshot(c.Request.Context())
	if err != nil {
		r.logger.WithError(err).Error("ws: initial snapshot failed")
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		r.logger.WithError(err).Warn("ws: upgrade failed")
		return
	}

	client := newClient(r.hub, conn)
	if !r.hub.add(client, welcome) {
		_ = conn.Close()
		return
	}
	go client.writePump()
	client.readPump()
}
