package certstore

import "errors"

var (
	// ErrCorruptState is returned when the state file exists but cannot be parsed.
	ErrCorruptState = errors.New("certificate state file is corrupt")
	// ErrInvalidSection is returned when Get or Set is called with an unknown section.
	ErrInvalidSection = errors.New("unknown store section")
	// ErrInvalidValue is returned when Set receives a value of the wrong type for a section.
	ErrInvalidValue = errors.New("invalid value type for store section")
	// ErrWriteFailed is returned when a durable write of the state file fails.
	ErrWriteFailed = errors.New("failed to write certificate state file")
)
