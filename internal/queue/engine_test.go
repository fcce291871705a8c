package queue_test

import (
	"context"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon_queue/internal/models"
	"salon_queue/internal/notify"
	"salon_queue/internal/queue"
	"salon_queue/internal/secure"
	"salon_queue/internal/storage"
)

var refTime = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

type fakeNotifier struct {
	mu       sync.Mutex
	fail     bool
	payloads []notify.Payload
}

func (f *fakeNotifier) NowServing(_ context.Context, p notify.Payload) notify.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)

	var report notify.Report
	if p.Phone != "" {
		report.Results = append(report.Results, notify.Result{Channel: notify.ChannelSMS, Success: !f.fail, Error: errText(f.fail)})
	}
	if p.Email != "" {
		report.Results = append(report.Results, notify.Result{Channel: notify.ChannelEmail, Success: !f.fail, Error: errText(f.fail)})
	}
	return report
}

func (f *fakeNotifier) calls() []notify.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Payload(nil), f.payloads...)
}

func errText(fail bool) string {
	if fail {
		return "gateway down"
	}
	return ""
}

type fixture struct {
	store    *storage.MemStore
	notifier *fakeNotifier
	cipher   *secure.Cipher
	engine   *queue.Engine
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &fixture{
		store:    storage.NewMemStore(nil),
		notifier: &fakeNotifier{},
		cipher:   secure.New("test-key"),
		now:      refTime,
	}
	f.engine = queue.NewEngine(f.store, f.store, f.cipher, f.notifier, logger,
		queue.WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) setServing(t *testing.T, n int) {
	t.Helper()
	require.NoError(t, f.store.UpdateSettings(context.Background(), queue.SettingsPatch{CurrentServing: &n}))
}

func (f *fixture) put(t *testing.T, owner string, position int) models.QueueEntry {
	t.Helper()
	email, err := f.cipher.Encrypt(owner + "@example.com")
	require.NoError(t, err)
	phone, err := f.cipher.Encrypt("0917000000" + owner[len(owner)-1:])
	require.NoError(t, err)
	return f.store.Put(models.QueueEntry{
		OwnerID:           owner,
		Position:          position,
		EstimatedWaitTime: queue.EstimateWait(position),
		ContactEmail:      email,
		ContactPhone:      phone,
		IsActive:          true,
		CreatedAt:         refTime,
		UpdatedAt:         refTime,
	})
}

func assertDense(t *testing.T, store *storage.MemStore) {
	t.Helper()
	active, err := store.ActiveEntries(context.Background())
	require.NoError(t, err)
	for i, e := range active {
		assert.Equal(t, i+1, e.Position, "active positions must be 1..N")
		assert.Equal(t, queue.EstimateWait(e.Position), e.EstimatedWaitTime)
	}
}

func TestEstimateWait(t *testing.T) {
	assert.Equal(t, 0, queue.EstimateWait(0))
	assert.Equal(t, 0, queue.EstimateWait(-3))
	assert.Equal(t, 20, queue.EstimateWait(1))
	assert.Equal(t, 140, queue.EstimateWait(7))
}

func TestAdvance(t *testing.T) {
	t.Run("serves the front and compacts the rest", func(t *testing.T) {
		f := newFixture(t)
		f.setServing(t, 5)
		a := f.put(t, "owner-1", 1)
		b := f.put(t, "owner-2", 2)
		c := f.put(t, "owner-3", 3)

		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 6, res.CurrentServing)
		require.NotNil(t, res.Served)
		assert.Equal(t, a.ID, res.Served.ID)
		assert.Empty(t, res.Warning())

		served, _ := f.store.Entry(a.ID)
		assert.False(t, served.IsActive)
		assert.Equal(t, refTime, served.UpdatedAt)

		gotB, _ := f.store.Entry(b.ID)
		gotC, _ := f.store.Entry(c.ID)
		assert.Equal(t, 1, gotB.Position)
		assert.Equal(t, 20, gotB.EstimatedWaitTime)
		assert.Equal(t, 2, gotC.Position)
		assert.Equal(t, 40, gotC.EstimatedWaitTime)

		settings, _ := f.store.Settings(context.Background())
		assert.Equal(t, 6, settings.CurrentServing)
	})

	t.Run("empty queue still moves the counter", func(t *testing.T) {
		f := newFixture(t)
		f.setServing(t, 6)

		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, res.CurrentServing)
		assert.Nil(t, res.Served)
		assert.Empty(t, f.notifier.calls())
	})

	t.Run("notifies the served customer with decrypted contacts", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddProfile("owner-1", "Ana")
		f.put(t, "owner-1", 1)

		_, err := f.engine.Advance(context.Background())
		require.NoError(t, err)

		calls := f.notifier.calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "Ana", calls[0].Name)
		assert.Equal(t, "owner-1@example.com", calls[0].Email)
		assert.Equal(t, "09170000001", calls[0].Phone)
		assert.Equal(t, 1, calls[0].Position)
	})

	t.Run("missing profile does not block serving", func(t *testing.T) {
		f := newFixture(t)
		e := f.put(t, "owner-1", 1)

		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, e.ID, res.Served.ID)
		assert.Equal(t, "", f.notifier.calls()[0].Name)
	})

	t.Run("notification failure is reported but not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.fail = true
		a := f.put(t, "owner-1", 1)
		f.put(t, "owner-2", 2)

		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.CurrentServing)
		assert.Contains(t, res.Warning(), "Queue advanced, but notification failed")
		assert.Len(t, res.Notification.Failed(), 2)

		served, _ := f.store.Entry(a.ID)
		assert.False(t, served.IsActive)
		assertDense(t, f.store)
	})

	t.Run("repairs gaps left by concurrent writers", func(t *testing.T) {
		f := newFixture(t)
		f.put(t, "owner-1", 2)
		f.put(t, "owner-2", 5)
		f.put(t, "owner-3", 9)

		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Nil(t, res.Served, "nobody held position 1")

		active, _ := f.store.ActiveEntries(context.Background())
		require.Len(t, active, 3)
		assert.Equal(t, []string{"owner-1", "owner-2", "owner-3"}, owners(active))
		assertDense(t, f.store)
	})
}

func TestAdvanceCounterIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.put(t, "owner-1", 1)
	f.put(t, "owner-2", 2)

	const k = 5
	for i := 1; i <= k; i++ {
		res, err := f.engine.Advance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, res.CurrentServing)
	}

	state, err := f.engine.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, k, state.CurrentServing)
	assert.Empty(t, state.Queue)
}

type lostRaceStore struct {
	*storage.MemStore
}

func (s lostRaceStore) UpdateEntry(ctx context.Context, id string, patch queue.EntryPatch) (bool, error) {
	if patch.ExpectPosition > 0 {
		return false, nil
	}
	return s.MemStore.UpdateEntry(ctx, id, patch)
}

func TestAdvanceLosingConditionalServe(t *testing.T) {
	f := newFixture(t)
	store := lostRaceStore{f.store}
	engine := queue.NewEngine(store, f.store, f.cipher, f.notifier, discardLogger())
	a := f.put(t, "owner-1", 1)
	f.put(t, "owner-2", 2)

	res, err := engine.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentServing)
	assert.Nil(t, res.Served)
	assert.Empty(t, res.Notification.Results)
	assert.Empty(t, f.notifier.calls(), "only the writer that served the row tells the customer")

	// Another writer owns that row now; it stays in line and positions stay dense.
	got, _ := f.store.Entry(a.ID)
	assert.True(t, got.IsActive)
	assert.Equal(t, 1, got.Position)
	assertDense(t, f.store)
}

// resetMidAdvanceStore zeroes the counter as Advance reads the front, the way a Reset from
// another session would land between the settings read and the counter write.
type resetMidAdvanceStore struct {
	*storage.MemStore
}

func (s resetMidAdvanceStore) FrontEntry(ctx context.Context) (*models.QueueEntry, error) {
	zero := 0
	if err := s.MemStore.UpdateSettings(ctx, queue.SettingsPatch{CurrentServing: &zero}); err != nil {
		return nil, err
	}
	return s.MemStore.FrontEntry(ctx)
}

func TestAdvanceCounterSurvivesConcurrentReset(t *testing.T) {
	f := newFixture(t)
	f.setServing(t, 9)
	engine := queue.NewEngine(resetMidAdvanceStore{f.store}, f.store, f.cipher, f.notifier, discardLogger())

	res, err := engine.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentServing, "the increment applies to the value in the store, not the one read earlier")

	settings, _ := f.store.Settings(context.Background())
	assert.Equal(t, 1, settings.CurrentServing)
}

type failingStore struct {
	*storage.MemStore
	settingsErr error
	updateErr   error
	batchErr    error
}

func (s failingStore) UpdateEntry(ctx context.Context, id string, patch queue.EntryPatch) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	return s.MemStore.UpdateEntry(ctx, id, patch)
}

func (s failingStore) Settings(ctx context.Context) (models.QueueSettings, error) {
	if s.settingsErr != nil {
		return models.QueueSettings{}, s.settingsErr
	}
	return s.MemStore.Settings(ctx)
}

func (s failingStore) BatchUpsertEntries(ctx context.Context, updates []queue.EntryUpdate) error {
	if s.batchErr != nil {
		return s.batchErr
	}
	return s.MemStore.BatchUpsertEntries(ctx, updates)
}

func TestAdvanceStoreFailure(t *testing.T) {
	t.Run("failed settings read aborts before any write", func(t *testing.T) {
		f := newFixture(t)
		a := f.put(t, "owner-1", 1)
		store := failingStore{MemStore: f.store, settingsErr: errors.New("connection refused")}
		engine := queue.NewEngine(store, f.store, f.cipher, f.notifier, discardLogger())

		_, err := engine.Advance(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, queue.ErrStore))

		var storeErr *queue.StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "read settings", storeErr.Op)

		got, _ := f.store.Entry(a.ID)
		assert.True(t, got.IsActive)
		assert.Empty(t, f.notifier.calls())
	})

	t.Run("failed serve write sends nothing", func(t *testing.T) {
		f := newFixture(t)
		a := f.put(t, "owner-1", 1)
		store := failingStore{MemStore: f.store, updateErr: errors.New("connection reset")}
		engine := queue.NewEngine(store, f.store, f.cipher, f.notifier, discardLogger())

		_, err := engine.Advance(context.Background())
		require.Error(t, err)
		var storeErr *queue.StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "mark served", storeErr.Op)

		got, _ := f.store.Entry(a.ID)
		assert.True(t, got.IsActive)
		assert.Empty(t, f.notifier.calls())
		settings, _ := f.store.Settings(context.Background())
		assert.Zero(t, settings.CurrentServing)
	})

	t.Run("failed renumber is reported", func(t *testing.T) {
		f := newFixture(t)
		f.put(t, "owner-1", 1)
		f.put(t, "owner-2", 2)
		store := failingStore{MemStore: f.store, batchErr: errors.New("deadlock detected")}
		engine := queue.NewEngine(store, f.store, f.cipher, f.notifier, discardLogger())

		_, err := engine.Advance(context.Background())
		assert.True(t, errors.Is(err, queue.ErrStore))
	})
}

func TestNotifyNext(t *testing.T) {
	t.Run("empty queue", func(t *testing.T) {
		f := newFixture(t)
		f.setServing(t, 3)
		before, _ := f.store.Settings(context.Background())

		_, err := f.engine.NotifyNext(context.Background())
		assert.True(t, errors.Is(err, queue.ErrEmptyQueue))

		after, _ := f.store.Settings(context.Background())
		assert.Equal(t, before, after)
		assert.Empty(t, f.notifier.calls())
	})

	t.Run("notifies without mutating", func(t *testing.T) {
		f := newFixture(t)
		f.store.AddProfile("owner-1", "Bea")
		a := f.put(t, "owner-1", 1)

		report, err := f.engine.NotifyNext(context.Background())
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Len(t, report.Results, 2)

		got, _ := f.store.Entry(a.ID)
		assert.Equal(t, a, got)
		settings, _ := f.store.Settings(context.Background())
		assert.Equal(t, 0, settings.CurrentServing)
	})

	t.Run("channel failures surface as NotificationError", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.fail = true
		f.put(t, "owner-1", 1)

		report, err := f.engine.NotifyNext(context.Background())
		var nErr *queue.NotificationError
		require.True(t, errors.As(err, &nErr))
		assert.Len(t, nErr.Failures, 2)
		assert.False(t, report.OK())
	})
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.setServing(t, 12)
	f.put(t, "owner-1", 1)
	f.put(t, "owner-2", 2)

	res, err := f.engine.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deactivated)

	state, err := f.engine.GetState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Queue)
	assert.Equal(t, 0, state.CurrentServing)

	settings, _ := f.store.Settings(context.Background())
	require.NotNil(t, settings.LastReset)
	assert.Equal(t, refTime, *settings.LastReset)

	entry, err := f.engine.Join(context.Background(), "owner-3", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)
}

func TestGetState(t *testing.T) {
	f := newFixture(t)
	f.setServing(t, 4)
	f.put(t, "owner-2", 2)
	f.put(t, "owner-1", 1)

	state, err := f.engine.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, state.CurrentServing)
	require.Len(t, state.Queue, 2)
	assert.Equal(t, []string{"owner-1", "owner-2"}, owners(state.Queue))
	assert.Equal(t, "owner-1@example.com", state.Queue[0].ContactEmail)
	assert.Equal(t, "09170000001", state.Queue[0].ContactPhone)
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	f.store.Put(models.QueueEntry{OwnerID: "a", Position: 1, EstimatedWaitTime: 20, IsActive: true, CreatedAt: refTime.Add(-2 * time.Hour)})
	f.store.Put(models.QueueEntry{OwnerID: "b", Position: 2, EstimatedWaitTime: 25, IsActive: true, CreatedAt: refTime})
	f.store.Put(models.QueueEntry{OwnerID: "c", Position: 3, IsActive: false, CreatedAt: refTime.Add(-time.Hour)})
	f.store.Put(models.QueueEntry{OwnerID: "d", Position: 1, IsActive: false, CreatedAt: refTime.AddDate(0, 0, -1)})

	stats, err := f.engine.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalToday)
	assert.Equal(t, 2, stats.CurrentQueueLength)
	assert.Equal(t, 23, stats.AverageWaitTime)

	empty := newFixture(t)
	stats, err = empty.engine.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{}, stats)
}

func TestJoin(t *testing.T) {
	t.Run("appends and encrypts contacts at rest", func(t *testing.T) {
		f := newFixture(t)
		f.put(t, "owner-1", 1)

		entry, err := f.engine.Join(context.Background(), "owner-2", "two@example.com", "09170000002")
		require.NoError(t, err)
		assert.Equal(t, 2, entry.Position)
		assert.Equal(t, 40, entry.EstimatedWaitTime)
		assert.Equal(t, "two@example.com", entry.ContactEmail)

		stored, ok := f.store.Entry(entry.ID)
		require.True(t, ok)
		assert.NotEqual(t, "two@example.com", stored.ContactEmail)
		assert.Equal(t, "two@example.com", f.cipher.Decrypt(stored.ContactEmail))
	})

	t.Run("rejects a second active entry", func(t *testing.T) {
		f := newFixture(t)
		f.put(t, "owner-1", 1)

		_, err := f.engine.Join(context.Background(), "owner-1", "", "")
		assert.True(t, errors.Is(err, queue.ErrAlreadyQueued))
	})

	t.Run("rejects when closed", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.engine.SetOpen(context.Background(), false))

		_, err := f.engine.Join(context.Background(), "owner-1", "", "")
		assert.True(t, errors.Is(err, queue.ErrQueueClosed))

		require.NoError(t, f.engine.SetOpen(context.Background(), true))
		_, err = f.engine.Join(context.Background(), "owner-1", "", "")
		assert.NoError(t, err)
	})
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	f.put(t, "owner-1", 1)
	b := f.put(t, "owner-2", 2)
	f.put(t, "owner-3", 3)

	require.NoError(t, f.engine.Remove(context.Background(), b.ID))

	active, _ := f.store.ActiveEntries(context.Background())
	assert.Equal(t, []string{"owner-1", "owner-3"}, owners(active))
	assertDense(t, f.store)

	settings, _ := f.store.Settings(context.Background())
	assert.Equal(t, 0, settings.CurrentServing)
	assert.Empty(t, f.notifier.calls())

	err := f.engine.Remove(context.Background(), b.ID)
	assert.True(t, errors.Is(err, queue.ErrEntryNotFound))
}

func TestEntryFor(t *testing.T) {
	f := newFixture(t)
	f.put(t, "owner-1", 1)
	f.put(t, "owner-2", 2)

	entry, err := f.engine.EntryFor(context.Background(), "owner-2")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Position)
	assert.Equal(t, "owner-2@example.com", entry.ContactEmail)

	_, err = f.engine.EntryFor(context.Background(), "stranger")
	assert.True(t, errors.Is(err, queue.ErrEntryNotFound))
}

// Positions stay dense across any interleaving of joins, advances, removals and resets.
func TestPositionsStayDense(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()
	next := 0

	for step := 0; step < 300; step++ {
		switch op := rng.Intn(10); {
		case op < 5:
			next++
			_, err := f.engine.Join(ctx, ownerName(next), "", "")
			require.NoError(t, err)
		case op < 8:
			_, err := f.engine.Advance(ctx)
			require.NoError(t, err)
		case op < 9:
			active, _ := f.store.ActiveEntries(ctx)
			if len(active) > 0 {
				require.NoError(t, f.engine.Remove(ctx, active[rng.Intn(len(active))].ID))
			}
		default:
			_, err := f.engine.Reset(ctx)
			require.NoError(t, err)
		}
		assertDense(t, f.store)
	}
}

// Joins, advances and removals racing on one store leave every served row inactive, notify each
// served customer once, count every advance, and the next pass leaves positions dense.
func TestConcurrentOperationsHeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		f.put(t, ownerName(i), i)
	}

	const (
		joiners   = 20
		advancers = 12
		removers  = 6
	)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		served = map[string]int{}
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.Join(ctx, ownerName(100+i), "", "")
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < advancers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.Advance(ctx)
			if !assert.NoError(t, err) || res.Served == nil {
				return
			}
			mu.Lock()
			served[res.Served.ID]++
			mu.Unlock()
		}()
	}
	for i := 0; i < removers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			active, err := f.store.ActiveEntries(ctx)
			if !assert.NoError(t, err) || len(active) == 0 {
				return
			}
			err = f.engine.Remove(ctx, active[len(active)-1].ID)
			if err != nil {
				assert.True(t, errors.Is(err, queue.ErrEntryNotFound), err)
			}
		}()
	}
	wg.Wait()

	res, err := f.engine.Advance(ctx)
	require.NoError(t, err)
	if res.Served != nil {
		served[res.Served.ID]++
	}
	assertDense(t, f.store)
	assert.Equal(t, advancers+1, res.CurrentServing)

	for id, n := range served {
		assert.Equal(t, 1, n, "entry %s served twice", id)
		got, _ := f.store.Entry(id)
		assert.False(t, got.IsActive)
	}
	assert.Len(t, f.notifier.calls(), len(served))

	active, err := f.store.ActiveEntries(ctx)
	require.NoError(t, err)
	for _, e := range active {
		assert.NotContains(t, served, e.ID)
	}
}

func owners(entries []models.QueueEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.OwnerID
	}
	return out
}

func ownerName(i int) string {
	return "owner-" + strconv.Itoa(i)
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
