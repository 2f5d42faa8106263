package botcheck

import "errors"

var (
	// ErrMissingToken is returned when a secret is configured but no token was supplied.
	ErrMissingToken = errors.New("turnstile token is required")

	// ErrVerificationFailed is returned when the provider rejects the token.
	ErrVerificationFailed = errors.New("turnstile verification failed")
)
