package leads

import "errors"

var (
	// ErrInvalidBody is returned when the request body cannot be decoded.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrBodyTooLarge is returned when the body exceeds maxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)
