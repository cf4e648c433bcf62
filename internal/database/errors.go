package database

import "errors"

var (
	// ErrNotFound is returned when a looked up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAvailable is returned when a requested slot is booked or inside a buffer.
	ErrNotAvailable = errors.New("slot not available")
)
