package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotConnected      = errors.New("campaign has no connection for that platform")
	ErrInvalidValue      = errors.New("conversion value must be positive")
)
