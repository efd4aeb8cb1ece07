// Package sensor defines the environmental reading model and the ingestion
// pipeline that feeds the automation and alerting subsystems.
//
// # Purpose
//
// Sensor readings arrive over two transports: an MQTT subscription on
// greenhouse/sensors/+ and a REST POST. Both converge here into a single
// validated Reading stream so downstream consumers never care about origin.
//
// # Architecture
//
//	MQTT message ──┐
//	               ├─> Ingestor ──> Sink (automation engine)
//	REST POST ─────┘        │ ────> Sink (alert dispatcher)
//	                        └─────> Recorder (telemetry, optional)
//
// # Reading Shapes
//
// MQTT payloads may be a bare number ("24.5") or a JSON envelope
// ({"value": 24.5, "timestamp": "..."}).  Binary sensors (light, soil,
// rain) must report 0 or 1; continuous sensors accept any finite value.
//
// # Thread Safety
//
// The Ingestor is safe for concurrent use; MQTT delivery and HTTP handlers
// call it from independent goroutines.
package sensor
