package alert

import (
	"context"
	"fmt"

	"github.com/verdantio/greenhouse-core/internal/sensor"
)

// Rules holds the reading bounds that raise alerts.
//
// These are alerting thresholds, deliberately separate from the automation
// thresholds: the window opens at 30°C, but nobody gets an email until
// conditions are genuinely out of range.
type Rules struct {
	TempCriticalHigh float64
	TempHigh         float64
	TempCriticalLow  float64
	TempLow          float64
	HumidityHigh     float64
	HumidityLow      float64
}

// DefaultRules returns greenhouse-sensible alerting bounds.
func DefaultRules() Rules {
	return Rules{
		TempCriticalHigh: 40,
		TempHigh:         35,
		TempCriticalLow:  2,
		TempLow:          5,
		HumidityHigh:     90,
		HumidityLow:      20,
	}
}

// Monitor watches the sensor reading stream and submits candidates for
// out-of-range conditions. It implements sensor.Sink.
type Monitor struct {
	rules      Rules
	dispatcher *Dispatcher
}

// NewMonitor creates a monitor feeding the given dispatcher.
func NewMonitor(rules Rules, dispatcher *Dispatcher) *Monitor {
	return &Monitor{rules: rules, dispatcher: dispatcher}
}

// HandleReading implements sensor.Sink.
func (m *Monitor) HandleReading(ctx context.Context, reading sensor.Reading) {
	candidate, ok := m.evaluate(reading)
	if !ok {
		return
	}
	m.dispatcher.Submit(ctx, candidate)
}

// evaluate maps one reading to an alert candidate, if it warrants one.
func (m *Monitor) evaluate(reading sensor.Reading) (Candidate, bool) {
	value := reading.Value
	candidate := Candidate{
		SensorValue: &value,
		OccurredAt:  reading.ObservedAt,
	}

	switch reading.SensorType {
	case sensor.TypeTemperature:
		candidate.Category = CategoryTemperature
		switch {
		case value >= m.rules.TempCriticalHigh:
			candidate.Severity = SeverityCritical
			candidate.Message = fmt.Sprintf("temperature critically high: %.1f°C", value)
		case value >= m.rules.TempHigh:
			candidate.Severity = SeverityHigh
			candidate.Message = fmt.Sprintf("temperature high: %.1f°C", value)
		case value <= m.rules.TempCriticalLow:
			candidate.Severity = SeverityCritical
			candidate.Message = fmt.Sprintf("temperature critically low: %.1f°C", value)
		case value <= m.rules.TempLow:
			candidate.Severity = SeverityHigh
			candidate.Message = fmt.Sprintf("temperature low: %.1f°C", value)
		default:
			return Candidate{}, false
		}

	case sensor.TypeHumidity:
		candidate.Category = CategoryHumidity
		switch {
		case value >= m.rules.HumidityHigh:
			candidate.Severity = SeverityMedium
			candidate.Message = fmt.Sprintf("humidity high: %.0f%%", value)
		case value <= m.rules.HumidityLow:
			candidate.Severity = SeverityMedium
			candidate.Message = fmt.Sprintf("humidity low: %.0f%%", value)
		default:
			return Candidate{}, false
		}

	case sensor.TypeSoil:
		if value != 0 {
			return Candidate{}, false
		}
		candidate.Category = CategorySoil
		candidate.Severity = SeverityLow
		candidate.Message = "soil moisture low, irrigation expected"

	case sensor.TypeWaterLevel:
		if value != 0 {
			return Candidate{}, false
		}
		candidate.Category = CategoryWaterLevel
		candidate.Severity = SeverityHigh
		candidate.Message = "water reservoir empty, irrigation unavailable"

	default:
		return Candidate{}, false
	}

	return candidate, true
}

// SystemError submits a system-error candidate. Used by infrastructure
// callbacks (broker disconnects, persistent write failures).
func (m *Monitor) SystemError(ctx context.Context, message string) {
	m.dispatcher.Submit(ctx, Candidate{
		Category: CategorySystemError,
		Severity: SeverityHigh,
		Message:  message,
	})
}
