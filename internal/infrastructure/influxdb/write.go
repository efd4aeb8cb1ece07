package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a single environmental sensor measurement.
//
// This is the primary method for recording sensor telemetry data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sensorType: The sensor category (e.g., "temperature", "humidity", "soil")
//   - value: The numeric reading
//
// Example:
//
//	client.WriteSensorReading("temperature", 24.5)
//	client.WriteSensorReading("soil", 0)
func (c *Client) WriteSensorReading(sensorType string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"sensor_type": sensorType,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceEvent writes a device actuation event.
//
// Used for tracking when devices change state, who asked for the change,
// and whether the hardware publish succeeded.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "window")
//   - state: Resulting device state ("on", "off", "open", "closed")
//   - triggeredBy: What caused the change ("automation", "manual")
//   - success: Whether the change reached the device
func (c *Client) WriteDeviceEvent(deviceID string, state string, triggeredBy string, success bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_events",
		map[string]string{
			"device_id":    deviceID,
			"triggered_by": triggeredBy,
		},
		map[string]interface{}{
			"state":   state,
			"success": success,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "greenhouse-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
