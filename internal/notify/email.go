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

// EmailGateway sends transactional email through Brevo.
type EmailGateway struct {
	apiKey        string
	baseURL       string
	senderName    string
	senderAddress string
	client        *http.Client
	logger        *logrus.Logger
}

func NewEmailGateway(apiKey, baseURL, senderName, senderAddress string, client *http.Client, logger *logrus.Logger) *EmailGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &EmailGateway{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(baseURL, "/"),
		senderName:    senderName,
		senderAddress: senderAddress,
		client:        client,
		logger:        logger,
	}
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	To          []brevoContact `json:"to"`
	Sender      brevoContact   `json:"sender"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
	ScheduledAt string         `json:"scheduledAt,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

func (g *EmailGateway) SendEmail(ctx context.Context, kind Kind, p Payload, scheduleAt *time.Time) Result {
	if g.apiKey == "" {
		return failure(ChannelEmail, "Brevo API key not configured.")
	}

	content, err := renderEmail(kind, p)
	if err != nil {
		return failure(ChannelEmail, err.Error())
	}

	req := brevoRequest{
		To:          []brevoContact{{Email: p.Email, Name: p.displayName()}},
		Sender:      brevoContact{Email: g.senderAddress, Name: g.senderName},
		Subject:     content.Subject,
		HTMLContent: content.HTML,
		TextContent: content.Text,
	}
	if scheduleAt != nil {
		req.ScheduledAt = scheduleAt.Format(time.RFC3339)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return failure(ChannelEmail, err.Error())
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return failure(ChannelEmail, err.Error())
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.WithError(err).Warn("email: request failed")
		return failure(ChannelEmail, "Failed to send email: "+err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WithField("status", resp.StatusCode).Warnf("email: api error: %s", raw)
		return failure(ChannelEmail, fmt.Sprintf("Brevo API error: %d - %s", resp.StatusCode, raw))
	}

	var out brevoResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		g.logger.WithError(err).Debug("email: unreadable response body")
	}
	return Result{Channel: ChannelEmail, Success: true, MessageID: out.MessageID}
}
