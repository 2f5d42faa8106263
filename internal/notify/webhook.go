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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JackGreezy/rr-denver-co-1031-exchange-frontend/internal/leads"
)

// TimestampLayout matches JavaScript's Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// WebhookPayload is the flat body posted to the automation webhook.
type WebhookPayload struct {
	*leads.Lead
	Timestamp string `json:"timestamp"`
}

// NewWebhookPayload stamps lead with its processing time in UTC.
func NewWebhookPayload(lead *leads.Lead) WebhookPayload {
	at := lead.SubmittedAt
	if at.IsZero() {
		at = time.Now()
	}
	return WebhookPayload{Lead: lead, Timestamp: at.UTC().Format(TimestampLayout)}
}

// WebhookClient posts leads to an automation webhook such as Zapier.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient returns nil when url is blank.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends one lead. The response body is only read for error reporting.
func (c *WebhookClient) Post(ctx context.Context, lead *leads.Lead) error {
	if c == nil || c.url == "" {
		return ErrWebhookNotConfigured
	}

	ctx, span := tracer.Start(ctx, "notify.webhook.post", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := json.Marshal(NewWebhookPayload(lead))
	if err != nil {
		return fmt.Errorf("notify: marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: webhook request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("notify: webhook status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		span.RecordError(err)
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}
