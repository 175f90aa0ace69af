package httpapi

import (
	"net/http"

	"github.com/antoniostano/aria/internal/persona"
)

type uiSettingsResponse struct {
	DefaultPersona  persona.Tag   `json:"default_persona"`
	Personas        []persona.Tag `json:"personas"`
	ServerAudio     bool          `json:"server_audio"`
	SpeechBackend   string        `json:"speech_backend"`
	LivePreset      bool          `json:"live_preset"`
	InactivityTTLMS int64         `json:"inactivity_ttl_ms"`
}

func (s *Server) handleUISettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, uiSettingsResponse{
		DefaultPersona:  s.cfg.DefaultPersona,
		Personas:        persona.All(),
		ServerAudio:     s.synth != nil,
		SpeechBackend:   s.backend,
		LivePreset:      s.cfg.OpenAIAPIKey != "",
		InactivityTTLMS: s.sessions.InactivityTimeout().Milliseconds(),
	})
}
