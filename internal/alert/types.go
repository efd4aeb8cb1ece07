package alert

import (
	"fmt"
	"time"
)

// Category groups alerts for cooldown purposes. Each category cools down
// independently; a temperature storm never silences water-level alerts.
type Category string

// Category constants.
const (
	CategoryTemperature Category = "temperature"
	CategoryHumidity    Category = "humidity"
	CategorySoil        Category = "soil"
	CategoryWaterLevel  Category = "water_level"
	CategorySystemError Category = "system_error"
)

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTemperature, CategoryHumidity, CategorySoil, CategoryWaterLevel, CategorySystemError:
		return true
	default:
		return false
	}
}

// Severity ranks how urgent an alert is.
type Severity string

// Severity constants, ordered from most to least urgent.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// AllSeverities returns the severities from most to least urgent.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// rank returns a sortable urgency (lower is more urgent).
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// MoreUrgent reports whether s outranks other.
func (s Severity) MoreUrgent(other Severity) bool {
	return s.rank() < other.rank()
}

// Candidate is a single alert-worthy observation.
//
// Candidates are buffered inside a batch window and merged, or dropped
// outright while their category is cooling. They are never persisted.
type Candidate struct {
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	SensorValue *float64  `json:"sensor_value,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Validate checks that the candidate is well-formed.
func (c Candidate) Validate() error {
	if !c.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidCandidate, string(c.Category))
	}
	switch c.Severity {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidCandidate, string(c.Severity))
	}
	if c.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidCandidate)
	}
	return nil
}

// Notification is a finished alert handed to the notifier.
//
// A batched notification merges many candidates into one message with
// per-severity counts; an immediate notification carries a single candidate.
type Notification struct {
	ID             string           `json:"id"`
	Subject        string           `json:"subject"`
	Message        string           `json:"message"`
	Severity       Severity         `json:"severity"`
	Count          int              `json:"count"`
	SeverityCounts map[Severity]int `json:"severity_counts"`
	Categories     []Category       `json:"categories"`
	CreatedAt      time.Time        `json:"created_at"`
}
