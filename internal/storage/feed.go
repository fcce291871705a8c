package storage

import (
	"context"
	"sync"
	"time"
)

// Change is a bare "something changed" signal for one table. It carries no row data.
type Change struct {
	Table string    `json:"table"`
	At    time.Time `json:"at"`
}

// Subscription is a live push subscription. Done is closed when delivery stops for any reason.
type Subscription interface {
	Done() <-chan struct{}
	Close() error
}

// ChangeFeed is a best-effort push channel: messages may be dropped or arrive twice.
type ChangeFeed interface {
	Subscribe(ctx context.Context, tables []string, fn func(Change)) (Subscription, error)
}

type Publisher interface {
	Publish(ctx context.Context, table string) error
}

// MemFeed delivers changes in-process. It backs the memory store driver and tests.
type MemFeed struct {
	mu   sync.RWMutex
	subs map[*memSubscription]struct{}
}

func NewMemFeed() *MemFeed {
	return &MemFeed{subs: make(map[*memSubscription]struct{})}
}

func (f *MemFeed) Publish(_ context.Context, table string) error {
	f.mu.RLock()
	targets := make([]*memSubscription, 0, len(f.subs))
	for sub := range f.subs {
		if _, ok := sub.tables[table]; ok {
			targets = append(targets, sub)
		}
	}
	f.mu.RUnlock()

	change := Change{Table: table, At: time.Now()}
	for _, sub := range targets {
		sub.fn(change)
	}
	return nil
}

func (f *MemFeed) Subscribe(_ context.Context, tables []string, fn func(Change)) (Subscription, error) {
	sub := &memSubscription{
		feed:   f,
		tables: make(map[string]struct{}, len(tables)),
		fn:     fn,
		done:   make(chan struct{}),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// Disconnect drops every subscriber as if the transport had gone away.
func (f *MemFeed) Disconnect() {
	f.mu.Lock()
	subs := f.subs
	f.subs = make(map[*memSubscription]struct{})
	f.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.done) })
	}
}

type memSubscription struct {
	feed   *MemFeed
	tables map[string]struct{}
	fn     func(Change)
	done   chan struct{}
	once   sync.Once
}

func (s *memSubscription) Done() <-chan struct{} { return s.done }

func (s *memSubscription) Close() error {
	s.feed.mu.Lock()
	delete(s.feed.subs, s)
	s.feed.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}
