package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/verdantio/greenhouse-core/internal/sensor"
)

// sensorReadingRequest is the body of POST /api/sensors/readings.
type sensorReadingRequest struct {
	SensorType string   `json:"sensor_type"`
	Value      *float64 `json:"value"`
	Timestamp  string   `json:"timestamp,omitempty"`
}

// handleSensorReading ingests a sensor reading over HTTP.
//
// This is the fallback path for gateways without an MQTT client; the
// reading runs through exactly the same validation and fan-out pipeline
// as MQTT-delivered readings.
func (s *Server) handleSensorReading(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		writeInternalError(w, "sensor ingestion not configured")
		return
	}

	var req sensorReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeValidationError(w, "value is required")
		return
	}

	sensorType, err := sensor.ParseType(req.SensorType)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	observedAt := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeValidationError(w, "timestamp must be RFC3339")
			return
		}
		observedAt = parsed.UTC()
	}

	reading := sensor.Reading{
		SensorType: sensorType,
		Value:      *req.Value,
		ObservedAt: observedAt,
	}

	if err := s.ingestor.Ingest(r.Context(), reading); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"reading": reading,
	})
}
