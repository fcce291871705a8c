package notify

import (
	"strings"
	"time"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
	KindReschedule   Kind = "reschedule"
	KindNowServing   Kind = "now_serving"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

const fallbackName = "Valued Customer"

// Payload is the plain-text data a template renders. Queue notifications fill Position,
// appointment notifications fill the appointment fields.
type Payload struct {
	Name     string
	Email    string
	Phone    string
	Position int

	AppointmentAt time.Time
	Services      []string
	Balance       float64
}

func (p Payload) displayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return fallbackName
	}
	return p.Name
}

// Result is the outcome of a single channel send.
type Result struct {
	Channel   Channel `json:"channel"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
	MessageID string  `json:"message_id,omitempty"`
}

func failure(ch Channel, msg string) Result {
	return Result{Channel: ch, Success: false, Error: msg}
}

// Report collects the results of every channel attempted for one notification.
type Report struct {
	Results []Result `json:"results"`
}

func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

func (r Report) OK() bool { return len(r.Failed()) == 0 }
