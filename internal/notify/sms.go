package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	smsProviderID     = 2
	smsScheduleLayout = "2006-01-02 15:04"
)

// SmsGateway talks to the iprogtech SMS API.
type SmsGateway struct {
	apiKey     string
	baseURL    string
	senderName string
	client     *http.Client
	logger     *logrus.Logger
}

func NewSmsGateway(apiKey, baseURL, senderName string, client *http.Client, logger *logrus.Logger) *SmsGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &SmsGateway{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		senderName: senderName,
		client:     client,
		logger:     logger,
	}
}

type smsRequest struct {
	APIToken    string `json:"api_token"`
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
	SmsProvider int    `json:"sms_provider"`
	SenderName  string `json:"sender_name,omitempty"`
	ScheduledAt string `json:"scheduled_at,omitempty"`
}

// NormalizePhone converts a Philippine number to the local 0-prefixed form the gateway expects.
func NormalizePhone(phone string) string {
	n := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	switch {
	case strings.HasPrefix(n, "+63"):
		return "0" + n[3:]
	case strings.HasPrefix(n, "63"):
		return "0" + n[2:]
	case strings.HasPrefix(n, "0"):
		return n
	default:
		return "0" + n
	}
}

// SendSms posts one message. A non-nil scheduleAt routes it through the reminders endpoint.
func (g *SmsGateway) SendSms(ctx context.Context, phone, message string, scheduleAt *time.Time) Result {
	if g.apiKey == "" {
		g.logger.Warn("sms: SMS_API_KEY is not set")
		return failure(ChannelSMS, "SMS service is not configured.")
	}

	req := smsRequest{
		APIToken:    g.apiKey,
		PhoneNumber: NormalizePhone(phone),
		Message:     message,
		SmsProvider: smsProviderID,
		SenderName:  g.senderName,
	}
	endpoint := g.baseURL + "/sms_messages"
	if scheduleAt != nil {
		endpoint = g.baseURL + "/message-reminders"
		req.ScheduledAt = scheduleAt.Format(smsScheduleLayout)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return failure(ChannelSMS, err.Error())
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failure(ChannelSMS, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.WithError(err).Warn("sms: request failed")
		return failure(ChannelSMS, err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WithField("status", resp.StatusCode).Warnf("sms: api error: %s", raw)
		return failure(ChannelSMS, fmt.Sprintf("Failed to send SMS: %d %s", resp.StatusCode, raw))
	}
	return Result{Channel: ChannelSMS, Success: true}
}
