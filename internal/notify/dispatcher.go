package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type SmsSender interface {
	SendSms(ctx context.Context, phone, message string, scheduleAt *time.Time) Result
}

type EmailSender interface {
	SendEmail(ctx context.Context, kind Kind, p Payload, scheduleAt *time.Time) Result
}

// Dispatcher fans one notification out to SMS and email. Channels run independently and a
// failure on one never stops the other; nothing here returns an error to the caller.
type Dispatcher struct {
	sms     SmsSender
	email   EmailSender
	timeout time.Duration
	logger  *logrus.Logger
}

func NewDispatcher(sms SmsSender, email EmailSender, timeout time.Duration, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{sms: sms, email: email, timeout: timeout, logger: logger}
}

func (d *Dispatcher) NowServing(ctx context.Context, p Payload) Report {
	return d.Send(ctx, KindNowServing, p, nil)
}

// Send delivers kind over every channel the payload has a contact for.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, p Payload, scheduleAt *time.Time) Report {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var (
		g        errgroup.Group
		smsRes   *Result
		emailRes *Result
	)

	if text := smsText(kind, p); p.Phone != "" && text != "" && d.sms != nil {
		g.Go(func() error {
			res := d.sms.SendSms(ctx, p.Phone, text, scheduleAt)
			smsRes = &res
			return nil
		})
	}
	if p.Email != "" && d.email != nil {
		g.Go(func() error {
			res := d.email.SendEmail(ctx, kind, p, scheduleAt)
			emailRes = &res
			return nil
		})
	}
	_ = g.Wait()

	var report Report
	for _, res := range []*Result{smsRes, emailRes} {
		if res == nil {
			continue
		}
		if !res.Success {
			d.logger.WithFields(logrus.Fields{
				"channel": res.Channel,
				"kind":    kind,
			}).Warnf("notify: delivery failed: %s", res.Error)
		}
		report.Results = append(report.Results, *res)
	}
	return report
}
