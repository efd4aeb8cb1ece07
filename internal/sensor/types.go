package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type identifies the kind of environmental sensor that produced a reading.
type Type string

// Sensor type constants.
const (
	TypeTemperature Type = "temperature"
	TypeHumidity    Type = "humidity"
	TypeLight       Type = "light"
	TypeSoil        Type = "soil"
	TypeRain        Type = "rain"
	TypeWaterLevel  Type = "water_level"
)

// AllTypes returns all valid sensor types.
func AllTypes() []Type {
	return []Type{
		TypeTemperature, TypeHumidity, TypeLight,
		TypeSoil, TypeRain, TypeWaterLevel,
	}
}

// IsValid reports whether t is a recognised sensor type.
func (t Type) IsValid() bool {
	switch t {
	case TypeTemperature, TypeHumidity, TypeLight, TypeSoil, TypeRain, TypeWaterLevel:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the sensor reports discrete 0/1 values
// rather than a continuous quantity.
func (t Type) IsBinary() bool {
	switch t {
	case TypeLight, TypeSoil, TypeRain:
		return true
	default:
		return false
	}
}

// ParseType converts a raw string (e.g. the last segment of an MQTT topic)
// into a sensor Type.
//
// Returns:
//   - Type: The parsed sensor type
//   - error: ErrUnknownType if the string is not a recognised type
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Reading is a single environmental measurement.
//
// Readings are ephemeral: they are consumed once by the ingestion pipeline
// and never stored by this package.
type Reading struct {
	SensorType Type      `json:"sensor_type"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// Validate checks that the reading is well-formed.
//
// Returns:
//   - error: ErrUnknownType or ErrInvalidValue describing the problem, nil if valid
func (r Reading) Validate() error {
	if !r.SensorType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, string(r.SensorType))
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("%w: value must be finite", ErrInvalidValue)
	}
	if r.SensorType.IsBinary() && r.Value != 0 && r.Value != 1 {
		return fmt.Errorf("%w: %s expects 0 or 1, got %v", ErrInvalidValue, r.SensorType, r.Value)
	}
	return nil
}

// mqttPayload is the JSON envelope accepted on sensor topics.
// The timestamp is optional; bare numeric payloads are also accepted.
type mqttPayload struct {
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

// ParsePayload converts a raw MQTT payload into a Reading for the given
// sensor type.
//
// Two payload shapes are accepted:
//   - a bare number: "24.5"
//   - a JSON object: {"value": 24.5, "timestamp": "2026-03-01T12:00:00Z"}
//
// When no timestamp is supplied, the reading is stamped with the current time.
//
// Parameters:
//   - sensorType: Type parsed from the topic
//   - payload: Raw message bytes
//
// Returns:
//   - Reading: The parsed and validated reading
//   - error: ErrInvalidPayload if the bytes cannot be interpreted, or a
//     validation error from Reading.Validate
func ParsePayload(sensorType Type, payload []byte) (Reading, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return Reading{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}

	reading := Reading{SensorType: sensorType, ObservedAt: time.Now().UTC()}

	// Bare numeric payload is the common case for simple firmware.
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		reading.Value = v
		return reading, reading.Validate()
	}

	var envelope mqttPayload
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Reading{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if envelope.Value == nil {
		return Reading{}, fmt.Errorf("%w: missing value field", ErrInvalidPayload)
	}
	reading.Value = *envelope.Value

	if envelope.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, envelope.Timestamp)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: bad timestamp: %w", ErrInvalidPayload, err)
		}
		reading.ObservedAt = ts.UTC()
	}

	return reading, reading.Validate()
}
