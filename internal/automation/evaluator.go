package automation

import (
	"fmt"

	"github.com/verdantio/greenhouse-core/internal/device"
	"github.com/verdantio/greenhouse-core/internal/sensor"
)

// Decision is the outcome of evaluating one reading against the thresholds.
type Decision struct {
	// DeviceID is the actuator this decision targets.
	DeviceID string

	// DeviceType is the actuator kind.
	DeviceType device.Type

	// Action is the desired command, nil when no change is wanted.
	Action *device.Action

	// Reason is a human-readable explanation, logged and surfaced on
	// run-check responses.
	Reason string
}

// WantsAction reports whether the decision asks for a device command.
func (d Decision) WantsAction() bool {
	return d.Action != nil
}

// TargetDevice returns the actuator driven by a sensor type.
//
// Each sensor maps to exactly one device: temperature and rain share the
// window, light drives the grow light, soil drives the pump. Sensors with
// no mapping (humidity, water level) feed alerting only.
//
// Returns:
//   - device.Type: The mapped actuator type
//   - bool: false when the sensor has no automation mapping
func TargetDevice(sensorType sensor.Type) (device.Type, bool) {
	switch sensorType {
	case sensor.TypeTemperature, sensor.TypeRain:
		return device.TypeWindow, true
	case sensor.TypeLight:
		return device.TypeLight, true
	case sensor.TypeSoil:
		return device.TypePump, true
	default:
		return "", false
	}
}

// Evaluate maps a sensor reading to a desired device action.
//
// Pure and deterministic: no I/O, no clock, no state. Cooldowns, manual
// overrides and redundancy checks are applied by the Engine afterwards.
//
// Continuous sensors (temperature) use a hysteresis band: open at or above
// OpenTemp, close at or below CloseTemp, no action inside the dead-band.
// Binary sensors compare directly against their trigger value.
//
// Parameters:
//   - sensorType: The reading's sensor type
//   - value: The reading's value
//   - settings: Current thresholds (must satisfy Validate)
//
// Returns:
//   - Decision: Target device plus desired action (nil action = no change)
//   - error: ErrInvalidConfig for an inverted hysteresis band,
//     ErrUnknownSensor when the sensor drives no device
func Evaluate(sensorType sensor.Type, value float64, settings Settings) (Decision, error) {
	target, ok := TargetDevice(sensorType)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownSensor, sensorType)
	}

	decision := Decision{
		DeviceID:   string(target),
		DeviceType: target,
	}

	switch sensorType {
	case sensor.TypeTemperature:
		band := settings.Temperature
		if band.OpenTemp <= band.CloseTemp {
			return Decision{}, fmt.Errorf("%w: open_temp (%.1f) must be greater than close_temp (%.1f)",
				ErrInvalidConfig, band.OpenTemp, band.CloseTemp)
		}
		switch {
		case value >= band.OpenTemp:
			decision.Action = actionPtr(device.ActionOpen)
			decision.Reason = fmt.Sprintf("temperature %.1f at or above open threshold %.1f", value, band.OpenTemp)
		case value <= band.CloseTemp:
			decision.Action = actionPtr(device.ActionClose)
			decision.Reason = fmt.Sprintf("temperature %.1f at or below close threshold %.1f", value, band.CloseTemp)
		default:
			decision.Reason = fmt.Sprintf("temperature %.1f inside dead-band (%.1f–%.1f)", value, band.CloseTemp, band.OpenTemp)
		}

	case sensor.TypeLight:
		if value == settings.Light.TriggerValue {
			decision.Action = actionPtr(device.ActionOn)
			decision.Reason = fmt.Sprintf("light level %v matches trigger, grow light on", value)
		} else {
			decision.Action = actionPtr(device.ActionOff)
			decision.Reason = fmt.Sprintf("light level %v clear of trigger, grow light off", value)
		}

	case sensor.TypeSoil:
		if value == settings.Soil.TriggerValue {
			decision.Action = actionPtr(device.ActionOn)
			decision.Reason = fmt.Sprintf("soil moisture %v matches trigger, pump on", value)
		} else {
			decision.Action = actionPtr(device.ActionOff)
			decision.Reason = fmt.Sprintf("soil moisture %v clear of trigger, pump off", value)
		}

	case sensor.TypeRain:
		// Rain only ever closes the window; clearing rain hands window
		// control back to the temperature band rather than reopening.
		if value == settings.Rain.TriggerValue {
			decision.Action = actionPtr(device.ActionClose)
			decision.Reason = fmt.Sprintf("rain detected (%v), closing window", value)
		} else {
			decision.Reason = "no rain, window left to temperature control"
		}
	}

	return decision, nil
}

// CooldownWindow returns the actuation cooldown for a sensor type.
func (s Settings) CooldownWindow(sensorType sensor.Type) int {
	switch sensorType {
	case sensor.TypeTemperature:
		return s.Temperature.CooldownMinutes
	case sensor.TypeLight:
		return s.Light.CooldownMinutes
	case sensor.TypeSoil:
		return s.Soil.CooldownMinutes
	case sensor.TypeRain:
		return s.Rain.CooldownMinutes
	default:
		return 0
	}
}

func actionPtr(a device.Action) *device.Action {
	return &a
}
