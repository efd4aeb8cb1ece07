package device

import (
	"fmt"
	"time"
)

// Type identifies the kind of actuator being controlled.
type Type string

// Device type constants.
const (
	TypeLight  Type = "light"
	TypePump   Type = "pump"
	TypeDoor   Type = "door"
	TypeWindow Type = "window"
)

// AllTypes returns all valid device types.
func AllTypes() []Type {
	return []Type{TypeLight, TypePump, TypeDoor, TypeWindow}
}

// IsValid reports whether t is a recognised device type.
func (t Type) IsValid() bool {
	switch t {
	case TypeLight, TypePump, TypeDoor, TypeWindow:
		return true
	default:
		return false
	}
}

// Action is a command verb applied to a device.
type Action string

// Action constants.
const (
	ActionOn    Action = "on"
	ActionOff   Action = "off"
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// IsValid reports whether a is a recognised action.
func (a Action) IsValid() bool {
	switch a {
	case ActionOn, ActionOff, ActionOpen, ActionClose:
		return true
	default:
		return false
	}
}

// Activates reports whether the action drives the device into its
// active state (on / open) rather than its resting state (off / closed).
func (a Action) Activates() bool {
	return a == ActionOn || a == ActionOpen
}

// LegalActions returns the action pair valid for the device type.
// Switched devices (light, pump) use on/off; apertures (door, window)
// use open/close.
func (t Type) LegalActions() [2]Action {
	switch t {
	case TypeDoor, TypeWindow:
		return [2]Action{ActionOpen, ActionClose}
	default:
		return [2]Action{ActionOn, ActionOff}
	}
}

// ValidateAction checks that the action belongs to the device type's
// legal pair.
//
// Returns:
//   - error: ErrIllegalAction if the verb does not match the device type
func (t Type) ValidateAction(action Action) error {
	if !t.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, string(t))
	}
	pair := t.LegalActions()
	if action != pair[0] && action != pair[1] {
		return fmt.Errorf("%w: %q not valid for %s (use %s/%s)",
			ErrIllegalAction, string(action), t, pair[0], pair[1])
	}
	return nil
}

// ActionForStatus returns the action that expresses the given active
// status for this device type (true → on/open, false → off/close).
func (t Type) ActionForStatus(active bool) Action {
	pair := t.LegalActions()
	if active {
		return pair[0]
	}
	return pair[1]
}

// ControlMode records who last moved a device.
type ControlMode string

// Control mode constants.
const (
	ControlModeAuto   ControlMode = "auto"
	ControlModeManual ControlMode = "manual"
)

// State is the authoritative record of a device's current condition.
//
// Exactly one live instance exists per device ID, owned by the Store and
// mutated only through the Synchronizer's apply path.
type State struct {
	DeviceID    string      `json:"device_id"`
	DeviceType  Type        `json:"device_type"`
	Status      bool        `json:"status"`
	LastCommand Action      `json:"last_command"`
	ControlMode ControlMode `json:"control_mode"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Equal reports whether two states describe the same device condition.
// UpdatedAt is deliberately excluded: two writers racing to the same
// status are not in conflict.
func (s State) Equal(other State) bool {
	return s.DeviceID == other.DeviceID &&
		s.DeviceType == other.DeviceType &&
		s.Status == other.Status &&
		s.LastCommand == other.LastCommand &&
		s.ControlMode == other.ControlMode
}

// CommandIntent is a request to move a device to a new state.
//
// Intents are created by the automation engine or the manual-control API
// path, consumed exactly once by the Synchronizer, and never persisted
// directly (each maps to a HistoryEntry).
type CommandIntent struct {
	DeviceID     string      `json:"device_id"`
	Action       Action      `json:"action"`
	TriggeredBy  ControlMode `json:"triggered_by"`
	SourceSensor string      `json:"source_sensor,omitempty"`
	SensorValue  *float64    `json:"sensor_value,omitempty"`
	RequestID    string      `json:"request_id"`
}

// Validate checks that the intent is well-formed.
func (c CommandIntent) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidIntent)
	}
	if !c.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidIntent, string(c.Action))
	}
	if c.TriggeredBy != ControlModeAuto && c.TriggeredBy != ControlModeManual {
		return fmt.Errorf("%w: triggered_by must be auto or manual", ErrInvalidIntent)
	}
	return nil
}
