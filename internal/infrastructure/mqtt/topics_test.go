package mqtt

import "testing"

func TestTopics_Builders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sensor reading", topics.SensorReading("temperature"), "greenhouse/sensors/temperature"},
		{"all sensor readings", topics.AllSensorReadings(), "greenhouse/sensors/+"},
		{"device control", topics.DeviceControl("pump"), "greenhouse/devices/pump/control"},
		{"device state", topics.DeviceState("window"), "greenhouse/devices/window/state"},
		{"all device states", topics.AllDeviceStates(), "greenhouse/devices/+/state"},
		{"system status", topics.SystemStatus(), "greenhouse/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSensorTypeFromTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{"temperature", "greenhouse/sensors/temperature", "temperature"},
		{"soil", "greenhouse/sensors/soil", "soil"},
		{"wrong prefix", "greenhouse/devices/pump/control", ""},
		{"extra level", "greenhouse/sensors/soil/raw", ""},
		{"bare prefix", "greenhouse/sensors/", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SensorTypeFromTopic(tt.topic); got != tt.want {
				t.Errorf("SensorTypeFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
