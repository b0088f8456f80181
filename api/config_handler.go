package api

import (
	"net/http"

	"github.com/seenimoa/quantdesk/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Data    config.DataConfig    `json:"data"`
	Options config.OptionsConfig `json:"options"`
	Logging config.LoggingConfig `json:"logging"`
	API     config.APIConfig     `json:"api"`
	// PolygonKey is masked.
	PolygonKey string `json:"polygon_key,omitempty"`
}

// handleGetConfig returns the running configuration with secrets masked.
// The configuration is read-only over HTTP.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Redacted()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Data:       cfg.Data,
			Options:    cfg.Options,
			Logging:    cfg.Logging,
			API:        cfg.API,
			PolygonKey: cfg.Polygon.APIKey,
		},
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}
