package sensor

import "errors"

// Domain errors for the sensor package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sensor.ErrInvalidPayload) {
//	    // reject the message, do not retry
//	}
var (
	// ErrUnknownType is returned when a sensor type string is not recognised.
	ErrUnknownType = errors.New("sensor: unknown type")

	// ErrInvalidValue is returned when a reading value is out of range for its type.
	ErrInvalidValue = errors.New("sensor: invalid value")

	// ErrInvalidPayload is returned when an inbound payload cannot be parsed.
	ErrInvalidPayload = errors.New("sensor: invalid payload")
)
