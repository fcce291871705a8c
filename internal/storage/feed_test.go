package storage

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon_queue/internal/models"
)

func TestMemFeedDeliversSubscribedTables(t *testing.T) {
	feed := NewMemFeed()
	var got []string
	sub, err := feed.Subscribe(context.Background(), []string{models.TableQueueEntries}, func(c Change) {
		got = append(got, c.Table)
	})
	require.NoError(t, err)

	require.NoError(t, feed.Publish(context.Background(), models.TableQueueEntries))
	require.NoError(t, feed.Publish(context.Background(), models.TableQueueSettings))
	assert.Equal(t, []string{models.TableQueueEntries}, got)

	require.NoError(t, sub.Close())
	require.NoError(t, feed.Publish(context.Background(), models.TableQueueEntries))
	assert.Len(t, got, 1, "closed subscriptions receive nothing")

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be closed after Close")
	}
	assert.NoError(t, sub.Close(), "double close is harmless")
}

func TestMemFeedDisconnect(t *testing.T) {
	feed := NewMemFeed()
	calls := 0
	sub, err := feed.Subscribe(context.Background(), []string{models.TableQueueSettings}, func(Change) { calls++ })
	require.NoError(t, err)

	feed.Disconnect()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("Disconnect must end every subscription")
	}

	require.NoError(t, feed.Publish(context.Background(), models.TableQueueSettings))
	assert.Zero(t, calls)
	assert.NoError(t, sub.Close())
}

func newRedisFeed(t *testing.T) (*RedisFeed, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRedisFeed(client, logger), mr
}

func TestRedisFeedRoundTrip(t *testing.T) {
	feed, _ := newRedisFeed(t)
	ctx := context.Background()

	changes := make(chan Change, 4)
	sub, err := feed.Subscribe(ctx, []string{models.TableQueueEntries, models.TableQueueSettings}, func(c Change) {
		changes <- c
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, models.TableQueueSettings))

	select {
	case c := <-changes:
		assert.Equal(t, models.TableQueueSettings, c.Table)
		assert.False(t, c.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("change was not delivered")
	}
}

func TestRedisFeedIgnoresOtherTables(t *testing.T) {
	feed, mr := newRedisFeed(t)
	ctx := context.Background()

	changes := make(chan Change, 4)
	sub, err := feed.Subscribe(ctx, []string{models.TableQueueEntries}, func(c Change) { changes <- c })
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(ctx, models.TableQueueSettings))
	// A raw, non-JSON message still counts as a change for its channel.
	mr.Publish(channelFor(models.TableQueueEntries), "ping")

	select {
	case c := <-changes:
		assert.Equal(t, models.TableQueueEntries, c.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("change was not delivered")
	}
	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisFeedCloseEndsSubscription(t *testing.T) {
	feed, _ := newRedisFeed(t)

	sub, err := feed.Subscribe(context.Background(), []string{models.TableQueueEntries}, func(Change) {})
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done was not closed")
	}
}

func TestRedisFeedSubscribeFailsWhenServerIsDown(t *testing.T) {
	feed, mr := newRedisFeed(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := feed.Subscribe(ctx, []string{models.TableQueueEntries}, func(Change) {})
	assert.Error(t, err)
}
