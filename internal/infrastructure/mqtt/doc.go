// Package mqtt provides MQTT client connectivity for Greenhouse Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Greenhouse Core uses MQTT both for inbound sensor telemetry and for
// outbound actuator commands. Sensor nodes publish readings under
// greenhouse/sensors/{type}; the core publishes single-character relay
// commands under greenhouse/devices/{type}/control.
//
//	Sensor nodes → MQTT Broker → Greenhouse Core → MQTT Broker → Actuators
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all sensor readings
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish an actuator command
//	topic := mqtt.Topics{}.DeviceControl("pump")
//	client.PublishString(topic, "1", 1, false)
package mqtt
