package mqtt

import "fmt"

// Topic prefixes for the greenhouse MQTT namespace.
//
// Sensors publish readings to greenhouse/sensors/{type}; actuator bridges
// subscribe to greenhouse/devices/{type}/control. The core publishes its
// own liveness to greenhouse/system/status.
const (
	// TopicPrefix is the base for all greenhouse topics.
	TopicPrefix = "greenhouse"

	// TopicPrefixSensors is the base for inbound sensor readings.
	TopicPrefixSensors = "greenhouse/sensors"

	// TopicPrefixDevices is the base for actuator command topics.
	TopicPrefixDevices = "greenhouse/devices"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "greenhouse/system"
)

// Topics provides builders for greenhouse MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceControl("pump")
//	// Returns: "greenhouse/devices/pump/control"
type Topics struct{}

// SensorReading returns the topic a sensor publishes readings on.
//
// Example: greenhouse/sensors/temperature
func (Topics) SensorReading(sensorType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixSensors, sensorType)
}

// AllSensorReadings returns a pattern matching every sensor topic.
//
// Pattern: greenhouse/sensors/+
func (Topics) AllSensorReadings() string {
	return TopicPrefixSensors + "/+"
}

// DeviceControl returns the outbound actuator command topic for a device type.
//
// The payload on this topic is a single character: "1" to energise,
// "0" to de-energise. No acknowledgement is expected from the hardware.
//
// Example: greenhouse/devices/window/control
func (Topics) DeviceControl(deviceType string) string {
	return fmt.Sprintf("%s/%s/control", TopicPrefixDevices, deviceType)
}

// DeviceState returns the canonical device state topic.
// The core publishes the authoritative state here after each applied command.
//
// Example: greenhouse/devices/window/state
func (Topics) DeviceState(deviceType string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevices, deviceType)
}

// AllDeviceStates returns a pattern matching all canonical device states.
//
// Pattern: greenhouse/devices/+/state
func (Topics) AllDeviceStates() string {
	return TopicPrefixDevices + "/+/state"
}

// SystemStatus returns the system status topic used for LWT and
// online/offline announcements.
//
// Example: greenhouse/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SensorTypeFromTopic extracts the sensor type from a sensor reading topic.
// Returns an empty string if the topic is not under the sensors prefix
// or has extra levels.
//
//	SensorTypeFromTopic("greenhouse/sensors/soil") // "soil"
func SensorTypeFromTopic(topic string) string {
	prefix := TopicPrefixSensors + "/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	rest := topic[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return ""
		}
	}
	return rest
}
