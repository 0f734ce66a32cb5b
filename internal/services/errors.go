package services

import "errors"

// Service errors
var (
	// Query errors
	ErrInvalidDate = errors.New("invalid date")

	// Command errors
	ErrInvalidCommand = errors.New("invalid command")

	// General errors
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
