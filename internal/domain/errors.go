package domain

import "errors"

var (
	// ErrTransport marks a non-200 response or a network error.
	ErrTransport = errors.New("transport failure")
	// ErrParse marks a body that is not valid JSON.
	ErrParse = errors.New("parse failure")
	// ErrStateCorrupt marks a durable state file that cannot be decoded.
	ErrStateCorrupt = errors.New("state corrupted")
	// ErrCircuitOpen is returned when consecutive failures stopped the run early.
	ErrCircuitOpen = errors.New("circuit breaker open")
)
