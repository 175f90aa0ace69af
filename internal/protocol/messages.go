package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/transcript"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientTextInput    MessageType = "client_text_input"
	TypeClientControl      MessageType = "client_control"
	TypeAssistantReply     MessageType = "assistant_reply"
	TypeAssistantAudio     MessageType = "assistant_audio"
	TypeTranscriptSnapshot MessageType = "transcript_snapshot"
	TypeListenResult       MessageType = "listen_result"
	TypeSystemEvent        MessageType = "system_event"
	TypeErrorEvent         MessageType = "error_event"
)

// Control actions accepted in ClientControl.Action.
const (
	ActionSetPersona      = "set_persona"
	ActionSetCredential   = "set_credential"
	ActionClearCredential = "clear_credential"
	ActionLive            = "live"
	ActionReset           = "reset"
	ActionListen          = "listen"
	ActionTranscript      = "transcript"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientTextInput struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ClientControl struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Action     string      `json:"action"`
	Persona    string      `json:"persona,omitempty"`
	Credential string      `json:"credential,omitempty"`
	Enabled    *bool       `json:"enabled,omitempty"`
}

// String omits the credential.
func (c ClientControl) String() string {
	return fmt.Sprintf("client_control{session=%s action=%s}", c.SessionID, c.Action)
}

type AssistantReply struct {
	Type       MessageType             `json:"type"`
	SessionID  string                  `json:"session_id"`
	TurnID     string                  `json:"turn_id"`
	Seq        int                     `json:"seq"`
	Text       string                  `json:"text"`
	SpeechText string                  `json:"speech_text"`
	Mode       string                  `json:"mode"`
	Persona    persona.Tag             `json:"persona"`
	Speech     persona.VoiceParameters `json:"speech"`
	Fallback   string                  `json:"fallback,omitempty"`
	UserText   string                  `json:"user_text"`
}

type AssistantAudio struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	TurnID      string      `json:"turn_id"`
	Format      string      `json:"format"`
	AudioBase64 string      `json:"audio_base64"`
}

type TranscriptSnapshot struct {
	Type      MessageType       `json:"type"`
	SessionID string            `json:"session_id"`
	Turns     []transcript.Turn `json:"turns"`
}

type ListenResult struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type SystemEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientTextInput:
		var msg ClientTextInput
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid client_text_input")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		msg.Action = strings.ToLower(strings.TrimSpace(msg.Action))
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		switch msg.Action {
		case ActionSetPersona:
			if strings.TrimSpace(msg.Persona) == "" {
				return nil, errors.New("set_persona requires persona")
			}
		case ActionLive:
			if msg.Enabled == nil {
				return nil, errors.New("live requires enabled")
			}
		case ActionSetCredential, ActionClearCredential, ActionReset, ActionListen, ActionTranscript:
		default:
			return nil, fmt.Errorf("unknown control action %q", msg.Action)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
