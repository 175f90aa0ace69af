package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/protocol"
	"github.com/antoniostano/aria/internal/speech"
)

type turnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	protocol.AssistantReply
	Audio *protocol.AssistantAudio `json:"audio,omitempty"`
}

type personaRequest struct {
	Persona string `json:"persona"`
}

type credentialRequest struct {
	Credential string `json:"credential"`
}

type liveRequest struct {
	Enabled bool `json:"enabled"`
}

type statusResponse struct {
	SessionID string `json:"session_id"`
	assistant.Status
}

// controllerFor resolves the session's controller or writes a 404.
func (s *Server) controllerFor(w http.ResponseWriter, r *http.Request) (string, *assistant.Controller, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	ctrl, err := s.sessions.Assistant(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return "", nil, false
	}
	return id, ctrl, true
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	reply, err := ctrl.HandleTurn(r.Context(), req.Text)
	if err != nil {
		writeControllerError(w, err)
		return
	}
	resp := turnResponse{AssistantReply: replyMessage(id, reply)}
	if audio, ok := s.synthesize(r.Context(), id, reply); ok {
		resp.Audio = &audio
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, protocol.TranscriptSnapshot{
		Type:      protocol.TypeTranscriptSnapshot,
		SessionID: id,
		Turns:     ctrl.Transcript(),
	})
}

func (s *Server) handleSetPersona(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	var req personaRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "persona is required")
		return
	}
	tag, err := persona.Parse(req.Persona)
	if err == nil {
		err = ctrl.SetPersona(tag)
	}
	if err != nil {
		writeControllerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed credential payload")
		return
	}
	if err := ctrl.SetCredential(req.Credential); err != nil {
		writeControllerError(w, err)
		return
	}
	s.metrics.ObserveSessionEvent("credential_set")
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleClearCredential(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	ctrl.ClearCredential()
	s.metrics.ObserveSessionEvent("credential_cleared")
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	var req liveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "enabled is required")
		return
	}
	if req.Enabled {
		if err := ctrl.EnableLive(); err != nil {
			writeControllerError(w, err)
			return
		}
	} else {
		ctrl.DisableLive()
	}
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	ctrl.Reset()
	respondJSON(w, http.StatusOK, statusResponse{SessionID: id, Status: ctrl.Status()})
}

func (s *Server) handleListen(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, protocol.ListenResult{
		Type:      protocol.TypeListenResult,
		SessionID: id,
		Text:      s.phrases.Listen(),
	})
}

// runTurn produces the outbound messages of one websocket turn.
func (s *Server) runTurn(ctx context.Context, sessionID string, ctrl *assistant.Controller, text string) []any {
	reply, err := ctrl.HandleTurn(ctx, text)
	if err != nil {
		code, _ := controllerErrorCode(err)
		return []any{protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      code,
			Source:    "assistant",
			Detail:    err.Error(),
		}}
	}

	out := make([]any, 0, 3)
	if f := reply.Failure; f != nil {
		out = append(out, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "live_" + string(f.Kind),
			Source:    "live",
			Retryable: f.Retryable(),
			Detail:    f.Detail,
		})
	}
	out = append(out, replyMessage(sessionID, reply))
	if audio, ok := s.synthesize(ctx, sessionID, reply); ok {
		out = append(out, audio)
	}
	return out
}

// applyControl handles a websocket control message and returns the replies.
func (s *Server) applyControl(ctx context.Context, sessionID string, ctrl *assistant.Controller, m protocol.ClientControl) []any {
	var err error
	switch m.Action {
	case protocol.ActionSetPersona:
		var tag persona.Tag
		if tag, err = persona.Parse(m.Persona); err == nil {
			err = ctrl.SetPersona(tag)
		}
	case protocol.ActionSetCredential:
		err = ctrl.SetCredential(m.Credential)
	case protocol.ActionClearCredential:
		ctrl.ClearCredential()
	case protocol.ActionLive:
		if *m.Enabled {
			err = ctrl.EnableLive()
		} else {
			ctrl.DisableLive()
		}
	case protocol.ActionReset:
		ctrl.Reset()
		return []any{protocol.TranscriptSnapshot{Type: protocol.TypeTranscriptSnapshot, SessionID: sessionID}}
	case protocol.ActionTranscript:
		return []any{protocol.TranscriptSnapshot{Type: protocol.TypeTranscriptSnapshot, SessionID: sessionID, Turns: ctrl.Transcript()}}
	case protocol.ActionListen:
		return []any{protocol.ListenResult{Type: protocol.TypeListenResult, SessionID: sessionID, Text: s.phrases.Listen()}}
	}
	if err != nil {
		code, _ := controllerErrorCode(err)
		s.logger.DebugContext(ctx, "control rejected", slog.String("action", m.Action), slog.String("code", code))
		return []any{protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      code,
			Source:    "control",
			Detail:    err.Error(),
		}}
	}
	st := ctrl.Status()
	return []any{protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: sessionID,
		Code:      "state_changed",
		Detail:    string(st.Mode) + "/" + string(st.Persona),
	}}
}

func (s *Server) synthesize(ctx context.Context, sessionID string, reply assistant.Reply) (protocol.AssistantAudio, bool) {
	if s.synth == nil {
		return protocol.AssistantAudio{}, false
	}
	audio, err := s.synth.Synthesize(ctx, reply.Text, reply.Speech)
	if err != nil {
		s.metrics.ObserveSpeechError(s.backend)
		s.logger.WarnContext(ctx, "speech synthesis failed", slog.String("session_id", sessionID), slog.String("error", err.Error()))
		return protocol.AssistantAudio{}, false
	}
	if len(audio.Data) == 0 {
		return protocol.AssistantAudio{}, false
	}
	return protocol.AssistantAudio{
		Type:        protocol.TypeAssistantAudio,
		SessionID:   sessionID,
		TurnID:      reply.AssistantTurn.ID,
		Format:      audio.Format,
		AudioBase64: base64.StdEncoding.EncodeToString(audio.Data),
	}, true
}

func replyMessage(sessionID string, reply assistant.Reply) protocol.AssistantReply {
	msg := protocol.AssistantReply{
		Type:       protocol.TypeAssistantReply,
		SessionID:  sessionID,
		TurnID:     reply.AssistantTurn.ID,
		Seq:        reply.AssistantTurn.Seq,
		Text:       reply.Text,
		SpeechText: speech.Prepare(reply.Text, reply.Speech),
		Mode:       string(reply.Mode),
		Persona:    reply.Persona,
		Speech:     reply.Speech,
		UserText:   reply.UserTurn.Text,
	}
	if reply.Failure != nil {
		msg.Fallback = string(reply.Failure.Kind)
	}
	return msg
}

func controllerErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		return "empty_input", http.StatusBadRequest
	case errors.Is(err, assistant.ErrEmptyCredential):
		return "empty_credential", http.StatusBadRequest
	case errors.Is(err, assistant.ErrCredentialRequired):
		return "credential_required", http.StatusConflict
	case errors.Is(err, persona.ErrUnknownPersona):
		return "invalid_persona", http.StatusBadRequest
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func writeControllerError(w http.ResponseWriter, err error) {
	code, status := controllerErrorCode(err)
	respondError(w, status, code, err.Error())
}
