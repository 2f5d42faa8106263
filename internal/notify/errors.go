package notify

import "errors"

var (
	// ErrEmailNotConfigured is returned by senders built without credentials.
	ErrEmailNotConfigured = errors.New("notify: email sender not configured")

	// ErrWebhookNotConfigured is returned when no webhook URL is set.
	ErrWebhookNotConfigured = errors.New("notify: webhook url not configured")
)
