package queue

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"salon_queue/internal/notify"
)

var (
	ErrEmptyQueue    = errors.New("queue is empty")
	ErrQueueClosed   = errors.New("queue is not accepting new entries")
	ErrAlreadyQueued = errors.New("customer already has an active queue entry")
	ErrEntryNotFound = errors.New("active queue entry not found")
	// ErrStore matches every StoreError via errors.Is.
	ErrStore = errors.New("queue store failure")
)

// StoreError wraps a failed read or write against the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("queue: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// NotificationError lists the channels that failed. The queue mutation that triggered the
// notification has already been applied when this is returned.
type NotificationError struct {
	Failures []notify.Result
}

func (e *NotificationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Channel, f.Error))
	}
	return "notification failed: " + strings.Join(parts, "; ")
}

func notificationErr(report notify.Report) error {
	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &NotificationError{Failures: failed}
}
