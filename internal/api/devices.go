package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdantio/greenhouse-core/internal/device"
)

// controlRequest is the body of POST /api/devices/{id}/control.
type controlRequest struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// controlResponse is the body returned after an accepted control command.
type controlResponse struct {
	State          device.State `json:"state"`
	RequestID      string       `json:"request_id"`
	OverrideActive bool         `json:"override_active"`
}

// handleListDevices returns the current state of every known device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	states := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"devices": states, "count": len(states)})
}

// handleGetDevice returns a single device state by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// handleControlDevice applies a manual command to a device.
//
// A successful command starts the manual-override window for the device,
// suppressing automation for it until the window lapses. Redundant
// commands (device already in the requested state) succeed without side
// effects and still refresh the override.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	intent := device.CommandIntent{
		DeviceID:    id,
		Action:      device.Action(req.Action),
		TriggeredBy: device.ControlModeManual,
		RequestID:   req.RequestID,
	}

	state, err := s.synchronizer.Apply(r.Context(), intent)
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrInvalidIntent), errors.Is(err, device.ErrIllegalAction):
			writeValidationError(w, err.Error())
		case errors.Is(err, device.ErrConflict):
			writeConflict(w, "device state changed concurrently, retry")
		default:
			writeInternalError(w, "failed to apply command")
		}
		return
	}

	s.engine.NotifyManualCommand(id)
	s.hub.Broadcast(EventControl, controlResponse{
		State:          state,
		RequestID:      req.RequestID,
		OverrideActive: true,
	})

	writeJSON(w, http.StatusOK, controlResponse{
		State:          state,
		RequestID:      req.RequestID,
		OverrideActive: s.engine.OverrideActive(id),
	})
}

// handleDeviceHistory returns the command log for a device, newest first.
//
// Query parameters:
//   - limit: maximum rows to return (default 50, capped at 200)
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.Get(id); err != nil {
		writeNotFound(w, "device not found")
		return
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"history": []device.HistoryEntry{}, "count": 0})
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.List(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, "failed to list device history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries, "count": len(entries)})
}
