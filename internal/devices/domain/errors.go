package devices

import "errors"

var (
	// ErrNotFound covers both missing devices and devices the caller does
	// not own; ownership failures must not leak existence.
	ErrNotFound = errors.New("devices: not found")
	// ErrAlreadyClaimed is returned when claiming a device owned by
	// another user.
	ErrAlreadyClaimed = errors.New("devices: already claimed")
)
