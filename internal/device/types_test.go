package device

import (
	"errors"
	"testing"
)

// =============================================================================
// Action Legality Tests
// =============================================================================

func TestType_ValidateAction(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		action  Action
		wantErr error
	}{
		{"light on", TypeLight, ActionOn, nil},
		{"light off", TypeLight, ActionOff, nil},
		{"pump on", TypePump, ActionOn, nil},
		{"window open", TypeWindow, ActionOpen, nil},
		{"window close", TypeWindow, ActionClose, nil},
		{"door open", TypeDoor, ActionOpen, nil},
		{"light open", TypeLight, ActionOpen, ErrIllegalAction},
		{"pump close", TypePump, ActionClose, ErrIllegalAction},
		{"window on", TypeWindow, ActionOn, ErrIllegalAction},
		{"door off", TypeDoor, ActionOff, ErrIllegalAction},
		{"unknown type", Type("fan"), ActionOn, ErrInvalidDeviceType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.typ.ValidateAction(tt.action)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateAction() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestType_ActionForStatus(t *testing.T) {
	tests := []struct {
		typ    Type
		active bool
		want   Action
	}{
		{TypeLight, true, ActionOn},
		{TypeLight, false, ActionOff},
		{TypePump, true, ActionOn},
		{TypeWindow, true, ActionOpen},
		{TypeWindow, false, ActionClose},
		{TypeDoor, false, ActionClose},
	}

	for _, tt := range tests {
		if got := tt.typ.ActionForStatus(tt.active); got != tt.want {
			t.Errorf("%s.ActionForStatus(%v) = %q, want %q", tt.typ, tt.active, got, tt.want)
		}
	}
}

func TestAction_Activates(t *testing.T) {
	if !ActionOn.Activates() || !ActionOpen.Activates() {
		t.Error("on/open must activate")
	}
	if ActionOff.Activates() || ActionClose.Activates() {
		t.Error("off/close must not activate")
	}
}

// =============================================================================
// Intent Validation Tests
// =============================================================================

func TestCommandIntent_Validate(t *testing.T) {
	valid := CommandIntent{
		DeviceID:    "pump",
		Action:      ActionOn,
		TriggeredBy: ControlModeManual,
		RequestID:   "req-1",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for valid intent", err)
	}

	tests := []struct {
		name   string
		mutate func(*CommandIntent)
	}{
		{"missing device id", func(c *CommandIntent) { c.DeviceID = "" }},
		{"unknown action", func(c *CommandIntent) { c.Action = "toggle" }},
		{"bad trigger", func(c *CommandIntent) { c.TriggeredBy = "scheduled" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := valid
			tt.mutate(&intent)
			if err := intent.Validate(); !errors.Is(err, ErrInvalidIntent) {
				t.Errorf("Validate() error = %v, want ErrInvalidIntent", err)
			}
		})
	}
}

func TestState_Equal(t *testing.T) {
	base := testState("light", TypeLight, true)

	same := base
	same.UpdatedAt = base.UpdatedAt.Add(1000)
	if !base.Equal(same) {
		t.Error("Equal() must ignore UpdatedAt")
	}

	flipped := base
	flipped.Status = false
	if base.Equal(flipped) {
		t.Error("Equal() must compare status")
	}
}
