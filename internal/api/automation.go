package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verdantio/greenhouse-core/internal/automation"
)

// handleGetAutomation returns the current automation settings.
func (s *Server) handleGetAutomation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Settings())
}

// handleUpdateAutomation replaces the automation settings.
//
// The request body is merged over the current settings, so callers may
// send only the fields they want to change. The merged result is
// validated as a whole before it is persisted and installed.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	// Decode over a copy of the current settings so omitted fields
	// keep their present values.
	settings := s.engine.Settings()
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.engine.UpdateSettings(r.Context(), settings)
	if err != nil {
		if errors.Is(err, automation.ErrInvalidConfig) {
			writeValidationError(w, err.Error())
			return
		}
		writeInternalError(w, "failed to update automation settings")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleRunCheck forces an evaluation pass over the latest reading of
// every mapped sensor and reports what the engine did for each.
//
// Cooldown and override gates apply exactly as they do for live
// readings; a run-check never bypasses suppression.
func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	results := s.engine.RunCheck(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}
