package tasks

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"salon_queue/internal/queue"
)

// Resetter is the part of the queue engine the nightly job needs.
type Resetter interface {
	Reset(ctx context.Context) (queue.ResetResult, error)
}

// AutoReset closes out the queue day. Errors are logged; the next scheduled run tries again.
func AutoReset(ctx context.Context, engine Resetter, logger *logrus.Logger) {
	res, err := engine.Reset(ctx)
	if err != nil {
		logger.WithError(err).Error("tasks: automatic queue reset failed")
		return
	}
	logger.WithField("deactivated", res.Deactivated).Info("tasks: automatic queue reset done")
}

// InitScheduler starts the cron scheduler. spec uses the six-field form with seconds, e.g.
// "0 0 21 * * *" for 21:00 every day. An empty spec schedules nothing and returns a nil cron.
func InitScheduler(ctx context.Context, spec string, engine Resetter, logger *logrus.Logger) (*cron.Cron, error) {
	if spec == "" {
		logger.Info("tasks: automatic queue reset disabled")
		return nil, nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() { AutoReset(ctx, engine, logger) }); err != nil {
		return nil, errors.Wrapf(err, "tasks: invalid AUTO_RESET_CRON %q", spec)
	}

	c.Start()
	logger.WithField("schedule", spec).Info("tasks: cron scheduler started")
	return c, nil
}
