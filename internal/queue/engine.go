package queue

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"salon_queue/internal/models"
	"salon_queue/internal/notify"
)

// MinutesPerSlot is the fixed wait estimate per place in line.
const MinutesPerSlot = 20

// EstimateWait returns the wait in minutes for an entry at position.
func EstimateWait(position int) int {
	if position <= 0 {
		return 0
	}
	return position * MinutesPerSlot
}

// Engine runs every queue mutation as a read-modify-write against Store. Positions are always
// recomputed from a fresh read, so a gap left by a concurrent writer is repaired by the next
// renumbering pass instead of being detected.
type Engine struct {
	store    Store
	profiles ProfileLookup
	cipher   Cipher
	notifier Notifier
	logger   *logrus.Logger
	now      func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source, used by tests and by the stats day boundary.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(store Store, profiles ProfileLookup, cipher Cipher, notifier Notifier, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		profiles: profiles,
		cipher:   cipher,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type State struct {
	Queue          []models.QueueEntry `json:"queue"`
	CurrentServing int                 `json:"currentServing"`
}

type Stats struct {
	TotalToday         int64 `json:"totalToday"`
	AverageWaitTime    int   `json:"averageWaitTime"`
	CurrentQueueLength int   `json:"currentQueueLength"`
}

type AdvanceResult struct {
	CurrentServing int
	// Served is the entry taken off the front, nil when the queue was empty.
	Served       *models.QueueEntry
	Notification notify.Report
}

// Warning is the partial-success message shown when the queue moved but a customer may not
// have been told.
func (r AdvanceResult) Warning() string {
	if err := notificationErr(r.Notification); err != nil {
		return "Queue advanced, but " + err.Error()
	}
	return ""
}

// Advance serves the entry at position 1, bumps the serving counter and compacts the rest.
// The counter moves even when nobody was waiting: it is a ticket number, not a served count.
func (e *Engine) Advance(ctx context.Context) (AdvanceResult, error) {
	settings, err := e.store.Settings(ctx)
	if err != nil {
		return AdvanceResult{}, storeErr("read settings", err)
	}

	front, err := e.store.FrontEntry(ctx)
	if err != nil {
		return AdvanceResult{}, storeErr("read front entry", err)
	}

	var (
		reports chan notify.Report
		served  *models.QueueEntry
	)
	if front != nil {
		payload := e.payloadFor(ctx, front)
		ok, err := e.store.UpdateEntry(ctx, front.ID, EntryPatch{
			Deactivate:     true,
			ExpectPosition: 1,
			UpdatedAt:      e.now(),
		})
		if err != nil {
			return AdvanceResult{}, storeErr("mark served", err)
		}
		if ok {
			served = front
			reports = make(chan notify.Report, 1)
			// Delivery must outlive the request that triggered it.
			notifyCtx := context.WithoutCancel(ctx)
			go func() {
				reports <- e.notifier.NowServing(notifyCtx, payload)
			}()
		} else {
			// Whoever moved the row served and notified this customer.
			e.logger.WithField("entry_id", front.ID).Warn("queue: front entry moved before it could be served")
		}
	}

	next, err := e.store.IncrementServing(ctx, e.now())
	if err != nil {
		return AdvanceResult{}, storeErr("update current serving", err)
	}
	if next != settings.CurrentServing+1 {
		e.logger.WithFields(logrus.Fields{
			"read":    settings.CurrentServing,
			"written": next,
		}).Warn("queue: serving counter moved during advance")
	}

	// This read must follow the serve write so the served row cannot come back.
	exclude := ""
	if served != nil {
		exclude = served.ID
	}
	if err := e.renumber(ctx, exclude); err != nil {
		return AdvanceResult{}, err
	}

	result := AdvanceResult{CurrentServing: next, Served: served}
	if reports != nil {
		result.Notification = <-reports
	}

	e.logger.WithFields(logrus.Fields{
		"current_serving": next,
		"served":          served != nil,
	}).Info("queue: advanced")
	return result, nil
}

// renumber reassigns dense positions 1..N to the active set in its current order.
func (e *Engine) renumber(ctx context.Context, exclude string) error {
	active, err := e.store.ActiveEntries(ctx)
	if err != nil {
		return storeErr("read active entries", err)
	}

	updates := Renumber(active, exclude, e.now())
	if len(updates) == 0 {
		return nil
	}
	if err := e.store.BatchUpsertEntries(ctx, updates); err != nil {
		return storeErr("renumber entries", err)
	}
	return nil
}

// Renumber builds the batch that makes positions dense, skipping the entry with id exclude.
// entries must already be ordered by position.
func Renumber(entries []models.QueueEntry, exclude string, at time.Time) []EntryUpdate {
	updates := make([]EntryUpdate, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == exclude {
			continue
		}
		pos := len(updates) + 1
		updates = append(updates, EntryUpdate{
			ID:                entry.ID,
			Position:          pos,
			EstimatedWaitTime: EstimateWait(pos),
			UpdatedAt:         at,
		})
	}
	return updates
}

// NotifyNext re-sends the now-serving message to whoever is at the front without touching the
// queue. It returns ErrEmptyQueue when nobody is waiting and a *NotificationError when any
// channel failed.
func (e *Engine) NotifyNext(ctx context.Context) (notify.Report, error) {
	front, err := e.store.FrontEntry(ctx)
	if err != nil {
		return notify.Report{}, storeErr("read front entry", err)
	}
	if front == nil {
		return notify.Report{}, ErrEmptyQueue
	}

	report := e.notifier.NowServing(ctx, e.payloadFor(ctx, front))
	return report, notificationErr(report)
}

type ResetResult struct {
	Deactivated int64
	ResetAt     time.Time
}

// Reset closes out the day: every active entry is soft-deleted and the counter returns to 0.
// There is no undo.
func (e *Engine) Reset(ctx context.Context) (ResetResult, error) {
	at := e.now()

	n, err := e.store.DeactivateAll(ctx, at)
	if err != nil {
		return ResetResult{}, storeErr("deactivate entries", err)
	}

	zero := 0
	if err := e.store.UpdateSettings(ctx, SettingsPatch{
		CurrentServing: &zero,
		LastReset:      &at,
		UpdatedAt:      at,
	}); err != nil {
		return ResetResult{}, storeErr("reset settings", err)
	}

	e.logger.WithField("deactivated", n).Info("queue: reset")
	return ResetResult{Deactivated: n, ResetAt: at}, nil
}

// GetState returns the active line with contacts decrypted for the admin view.
func (e *Engine) GetState(ctx context.Context) (State, error) {
	var (
		g        errgroup.Group
		active   []models.QueueEntry
		settings models.QueueSettings
	)
	g.Go(func() error {
		var err error
		if active, err = e.store.ActiveEntries(ctx); err != nil {
			return storeErr("read active entries", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if settings, err = e.store.Settings(ctx); err != nil {
			return storeErr("read settings", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return State{}, err
	}

	if !dense(active) {
		e.logger.WithField("active", len(active)).Warn("queue: positions are not contiguous, next renumbering will repair them")
	}

	queue := make([]models.QueueEntry, len(active))
	for i, entry := range active {
		queue[i] = e.decrypted(entry)
	}
	return State{Queue: queue, CurrentServing: settings.CurrentServing}, nil
}

// GetStats counts entries created during the current server-local calendar day and averages
// the wait estimate across the active set.
func (e *Engine) GetStats(ctx context.Context) (Stats, error) {
	now := e.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var (
		g      errgroup.Group
		total  int64
		active []models.QueueEntry
	)
	g.Go(func() error {
		var err error
		if total, err = e.store.CountCreatedBetween(ctx, dayStart, dayEnd); err != nil {
			return storeErr("count entries today", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if active, err = e.store.ActiveEntries(ctx); err != nil {
			return storeErr("read active entries", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalToday: total, CurrentQueueLength: len(active)}
	if len(active) > 0 {
		sum := 0
		for _, entry := range active {
			sum += entry.EstimatedWaitTime
		}
		stats.AverageWaitTime = int(math.Round(float64(sum) / float64(len(active))))
	}
	return stats, nil
}

// Join appends a customer at the back of the line.
func (e *Engine) Join(ctx context.Context, ownerID, email, phone string) (models.QueueEntry, error) {
	settings, err := e.store.Settings(ctx)
	if err != nil {
		return models.QueueEntry{}, storeErr("read settings", err)
	}
	if !settings.IsActive {
		return models.QueueEntry{}, ErrQueueClosed
	}

	active, err := e.store.ActiveEntries(ctx)
	if err != nil {
		return models.QueueEntry{}, storeErr("read active entries", err)
	}
	last := 0
	for _, entry := range active {
		if entry.OwnerID == ownerID {
			return models.QueueEntry{}, ErrAlreadyQueued
		}
		if entry.Position > last {
			last = entry.Position
		}
	}

	encEmail, err := e.encrypt(email)
	if err != nil {
		return models.QueueEntry{}, err
	}
	encPhone, err := e.encrypt(phone)
	if err != nil {
		return models.QueueEntry{}, err
	}

	at := e.now()
	entry := models.QueueEntry{
		OwnerID:           ownerID,
		Position:          last + 1,
		EstimatedWaitTime: EstimateWait(last + 1),
		ContactEmail:      encEmail,
		ContactPhone:      encPhone,
		IsActive:          true,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
	if err := e.store.CreateEntry(ctx, &entry); err != nil {
		return models.QueueEntry{}, storeErr("create entry", err)
	}

	e.logger.WithFields(logrus.Fields{
		"entry_id": entry.ID,
		"position": entry.Position,
	}).Info("queue: customer joined")
	return e.decrypted(entry), nil
}

// Remove takes an entry out of the line without serving it and closes the gap.
func (e *Engine) Remove(ctx context.Context, id string) error {
	removed, err := e.store.UpdateEntry(ctx, id, EntryPatch{Deactivate: true, UpdatedAt: e.now()})
	if err != nil {
		return storeErr("remove entry", err)
	}
	if !removed {
		return ErrEntryNotFound
	}

	if err := e.renumber(ctx, id); err != nil {
		return err
	}
	e.logger.WithField("entry_id", id).Info("queue: entry removed")
	return nil
}

// EntryFor returns the caller's own active entry.
func (e *Engine) EntryFor(ctx context.Context, ownerID string) (models.QueueEntry, error) {
	active, err := e.store.ActiveEntries(ctx)
	if err != nil {
		return models.QueueEntry{}, storeErr("read active entries", err)
	}
	for _, entry := range active {
		if entry.OwnerID == ownerID {
			return e.decrypted(entry), nil
		}
	}
	return models.QueueEntry{}, ErrEntryNotFound
}

// SetOpen opens or closes the queue for new joins. Waiting customers are unaffected.
func (e *Engine) SetOpen(ctx context.Context, open bool) error {
	if err := e.store.UpdateSettings(ctx, SettingsPatch{IsActive: &open, UpdatedAt: e.now()}); err != nil {
		return storeErr("update queue status", err)
	}
	return nil
}

func (e *Engine) payloadFor(ctx context.Context, entry *models.QueueEntry) notify.Payload {
	name, err := e.profiles.LookupDisplayName(ctx, entry.OwnerID)
	if err != nil {
		e.logger.WithError(err).WithField("owner_id", entry.OwnerID).Warn("queue: profile lookup failed")
		name = ""
	}
	return notify.Payload{
		Name:     name,
		Email:    e.cipher.Decrypt(entry.ContactEmail),
		Phone:    e.cipher.Decrypt(entry.ContactPhone),
		Position: entry.Position,
	}
}

func (e *Engine) decrypted(entry models.QueueEntry) models.QueueEntry {
	entry.ContactEmail = e.cipher.Decrypt(entry.ContactEmail)
	entry.ContactPhone = e.cipher.Decrypt(entry.ContactPhone)
	return entry
}

func (e *Engine) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	out, err := e.cipher.Encrypt(plaintext)
	if err != nil {
		return "", errors.Wrap(err, "queue: encrypt contact")
	}
	return out, nil
}

func dense(entries []models.QueueEntry) bool {
	for i, entry := range entries {
		if entry.Position != i+1 {
			return false
		}
	}
	return true
}
