package api

import (
	"net/http"

	"github.com/goubera/top10/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config         `json:"config"`
	ConfigFile string                 `json:"config_file"` // path to the active config file
	Settings   []config.SettingStatus `json:"settings"`    // where the key settings came from
}

// handleGetConfig returns the running configuration and where its key
// settings came from.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: config.ConfigFilePath(),
			Settings:   config.Describe(s.cfg),
		},
	})
}
