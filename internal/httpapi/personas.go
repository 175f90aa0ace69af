package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/antoniostano/aria/internal/persona"
)

type personaSummary struct {
	Tag persona.Tag `json:"tag"`
	persona.VoiceParameters
}

type listPersonasResponse struct {
	Default  persona.Tag      `json:"default"`
	Personas []personaSummary `json:"personas"`
}

func (s *Server) handleListPersonas(w http.ResponseWriter, _ *http.Request) {
	tags := persona.All()
	out := make([]personaSummary, 0, len(tags))
	for _, tag := range tags {
		p, err := persona.Resolve(tag)
		if err != nil {
			continue
		}
		out = append(out, personaSummary{Tag: tag, VoiceParameters: p})
	}
	respondJSON(w, http.StatusOK, listPersonasResponse{Default: s.cfg.DefaultPersona, Personas: out})
}

type previewSpeechRequest struct {
	Persona string `json:"persona"`
	Text    string `json:"text"`
}

const defaultPreviewText = "Hello! I'm ARIA, your futuristic voice assistant."

func (s *Server) handlePreviewSpeech(w http.ResponseWriter, r *http.Request) {
	if s.synth == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "server-side speech is not configured")
		return
	}
	var req previewSpeechRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tag := s.cfg.DefaultPersona
	if raw := strings.TrimSpace(req.Persona); raw != "" {
		parsed, err := persona.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
			return
		}
		tag = parsed
	}
	voice, err := persona.Resolve(tag)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = defaultPreviewText
	}

	audio, err := s.synth.Synthesize(r.Context(), text, voice)
	if err != nil {
		s.metrics.ObserveSpeechError(s.backend)
		respondError(w, http.StatusBadGateway, "speech_preview_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", mimeForAudioFormat(audio.Format))
	w.Header().Set("Cache-Control", "no-store")
	if f := strings.TrimSpace(audio.Format); f != "" {
		w.Header().Set("X-Audio-Format", f)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

func mimeForAudioFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	switch {
	case strings.Contains(f, "wav"):
		return "audio/wav"
	case strings.Contains(f, "mp3"):
		return "audio/mpeg"
	case strings.Contains(f, "ogg"), strings.Contains(f, "opus"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
