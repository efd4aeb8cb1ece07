package sensor

import (
	"context"
	"sync"
)

// Logger defines the logging interface used by the Ingestor.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink consumes validated sensor readings.
//
// Implementations must not block on slow I/O: a sink that needs to perform
// network or disk work should hand the reading off internally. A failing
// sink never prevents delivery to the remaining sinks.
type Sink interface {
	HandleReading(ctx context.Context, reading Reading)
}

// Recorder writes sensor telemetry to a time-series store.
// The write is expected to be non-blocking (batched internally).
type Recorder interface {
	WriteSensorReading(sensorType string, value float64)
}

// Ingestor is the single convergence point for inbound sensor readings.
//
// Readings arrive from two transports (MQTT subscription and REST POST);
// both are normalised to a Reading before entering the pipeline, so every
// downstream consumer sees an identical stream regardless of origin.
//
// All public methods are thread-safe.
type Ingestor struct {
	mu       sync.RWMutex
	sinks    []Sink
	recorder Recorder
	logger   Logger
}

// NewIngestor creates an ingestor with no sinks attached.
func NewIngestor() *Ingestor {
	return &Ingestor{logger: noopLogger{}}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.logger = logger
}

// AddSink registers a consumer for validated readings.
// Sinks are invoked in registration order.
func (i *Ingestor) AddSink(sink Sink) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sinks = append(i.sinks, sink)
}

// SetRecorder attaches an optional telemetry recorder.
// A nil recorder disables telemetry writes.
func (i *Ingestor) SetRecorder(recorder Recorder) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.recorder = recorder
}

// Ingest validates a reading and fans it out to every registered sink.
//
// Parameters:
//   - ctx: Context passed through to each sink
//   - reading: The reading to distribute
//
// Returns:
//   - error: A validation error if the reading is malformed; nil once the
//     reading has been handed to every sink
func (i *Ingestor) Ingest(ctx context.Context, reading Reading) error {
	if err := reading.Validate(); err != nil {
		i.logger.Warn("rejected sensor reading",
			"sensor_type", string(reading.SensorType),
			"value", reading.Value,
			"error", err)
		return err
	}

	i.mu.RLock()
	sinks := make([]Sink, len(i.sinks))
	copy(sinks, i.sinks)
	recorder := i.recorder
	i.mu.RUnlock()

	i.logger.Debug("sensor reading accepted",
		"sensor_type", string(reading.SensorType),
		"value", reading.Value)

	if recorder != nil {
		recorder.WriteSensorReading(string(reading.SensorType), reading.Value)
	}

	for _, sink := range sinks {
		sink.HandleReading(ctx, reading)
	}

	return nil
}

// IngestRaw parses a raw transport payload and ingests the result.
//
// This is the MQTT entry point: the caller extracts the sensor type from
// the topic and passes the untouched message payload.
//
// Parameters:
//   - ctx: Context passed through to each sink
//   - sensorType: Raw type string from the topic
//   - payload: Raw message bytes
//
// Returns:
//   - error: Parse or validation failure; nil on successful fan-out
func (i *Ingestor) IngestRaw(ctx context.Context, sensorType string, payload []byte) error {
	parsed, err := ParseType(sensorType)
	if err != nil {
		i.logger.Warn("sensor message on unknown topic", "sensor_type", sensorType)
		return err
	}

	reading, err := ParsePayload(parsed, payload)
	if err != nil {
		i.logger.Warn("unparseable sensor payload",
			"sensor_type", sensorType,
			"error", err)
		return err
	}

	return i.Ingest(ctx, reading)
}
