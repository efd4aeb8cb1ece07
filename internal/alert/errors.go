package alert

import "errors"

// ErrInvalidCandidate is returned when an alert candidate fails validation.
var ErrInvalidCandidate = errors.New("alert: invalid candidate")
