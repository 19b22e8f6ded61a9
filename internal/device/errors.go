package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDeviceID is returned for an empty device ID.
	ErrInvalidDeviceID = errors.New("device: id is required")

	// ErrInvalidField is returned when a delta names no known field.
	ErrInvalidField = errors.New("device: invalid field")

	// ErrInvalidHistoryEntry is returned when an entry lacks a device or action.
	ErrInvalidHistoryEntry = errors.New("device: invalid history entry")
)
