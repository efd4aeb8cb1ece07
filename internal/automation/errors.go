package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrInvalidConfig) {
//	    // reject the settings update, keep the previous configuration
//	}
var (
	// ErrInvalidConfig is returned when threshold settings are misconfigured,
	// e.g. an inverted hysteresis band. Rejected at update time so bad
	// thresholds never reach evaluation.
	ErrInvalidConfig = errors.New("automation: invalid configuration")

	// ErrUnknownSensor is returned when a sensor type has no automation mapping.
	ErrUnknownSensor = errors.New("automation: no rule for sensor")

	// ErrSettingsNotFound is returned when no settings row has been persisted yet.
	ErrSettingsNotFound = errors.New("automation: settings not found")
)
