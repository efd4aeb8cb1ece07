package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrConflict) {
//	    // concurrent writer won the race; treat as benign no-op
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist in the store.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrIllegalAction is returned when an action verb does not belong to the
	// device type's legal pair (on/off for switches, open/close for apertures).
	ErrIllegalAction = errors.New("device: illegal action")

	// ErrInvalidIntent is returned when a command intent fails validation.
	ErrInvalidIntent = errors.New("device: invalid intent")

	// ErrConflict is returned when a compare-and-set lost to a concurrent
	// writer twice in a row. The caller should treat this as a no-op.
	ErrConflict = errors.New("device: concurrent state change")
)
