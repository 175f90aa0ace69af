package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/speech"
)

var namespaceSeq atomic.Int64

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MetricsNamespace = fmt.Sprintf("test_app_%d", namespaceSeq.Add(1))
	cfg.SpeechProvider = "console"
	return cfg
}

func TestBuildDemoAssistant(t *testing.T) {
	var speechOut bytes.Buffer
	b, err := Build(testConfig(), BuildOptions{LogOutput: io.Discard, SpeechOutput: &speechOut})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if b.API == nil || b.Sessions == nil || b.Speaker == nil {
		t.Fatalf("Build() left components nil: %+v", b)
	}
	if b.Speech.Provider != "console" || b.Speech.Backend != "browser" {
		t.Fatalf("Speech = %+v", b.Speech)
	}

	ctrl, err := b.NewAssistant(persona.Female)
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	if ctrl.Mode() != brain.ModeDemo || ctrl.HasCredential() {
		t.Fatalf("new assistant mode=%s credential=%v, want demo without credential", ctrl.Mode(), ctrl.HasCredential())
	}
	if ctrl.Persona() != persona.Female {
		t.Fatalf("Persona() = %s, want Female", ctrl.Persona())
	}

	if err := b.Speaker.Speak(context.Background(), "hello there", ctrl.Voice()); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if !strings.Contains(speechOut.String(), "[Female]") {
		t.Fatalf("speech output = %q", speechOut.String())
	}
}

func TestNewAssistantPresetsServerCredential(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIAPIKey = "sk-server-key"
	b, err := Build(cfg, BuildOptions{LogOutput: io.Discard, SpeechOutput: io.Discard})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ctrl, err := b.NewAssistant(persona.Male)
	if err != nil {
		t.Fatalf("NewAssistant() error = %v", err)
	}
	if ctrl.Mode() != brain.ModeLive || !ctrl.HasCredential() {
		t.Fatalf("mode=%s credential=%v, want live with credential", ctrl.Mode(), ctrl.HasCredential())
	}
	if strings.Contains(fmt.Sprint(ctrl), "sk-server-key") {
		t.Fatalf("controller formatting leaked the credential")
	}
}

func TestResolveSpeech(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		key      string
		command  string
		want     string
		backend  string
		synth    bool
		wantErr  bool
	}{
		{name: "console", provider: "console", want: "console", backend: "browser"},
		{name: "none", provider: "none", want: "none", backend: "browser"},
		{name: "openai with key", provider: "openai", key: "sk-x", want: "openai", backend: "openai", synth: true},
		{name: "auto prefers openai", provider: "auto", key: "sk-x", want: "openai", backend: "openai", synth: true},
		{name: "auto without engines", provider: "auto", command: "aria-missing-speech-engine", want: "console", backend: "browser"},
		{name: "command missing", provider: "command", command: "aria-missing-speech-engine", wantErr: true},
		{name: "openai without key or engine", provider: "openai", command: "aria-missing-speech-engine", wantErr: true},
		{name: "invalid", provider: "morse", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.SpeechProvider = tc.provider
			cfg.OpenAIAPIKey = tc.key
			cfg.SpeechCommand = tc.command

			setup, err := resolveSpeech(cfg, io.Discard)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("resolveSpeech() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveSpeech() error = %v", err)
			}
			if setup.resolvedProvider != tc.want || setup.backend != tc.backend {
				t.Fatalf("resolveSpeech() = %s/%s, want %s/%s", setup.resolvedProvider, setup.backend, tc.want, tc.backend)
			}
			if (setup.synth != nil) != tc.synth {
				t.Fatalf("synth set = %v, want %v", setup.synth != nil, tc.synth)
			}
			if setup.speaker == nil {
				t.Fatalf("speaker is nil")
			}
		})
	}
}

func TestResolveSpeechCommandMissingIsUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.SpeechProvider = "command"
	cfg.SpeechCommand = "aria-missing-speech-engine"
	_, err := resolveSpeech(cfg, io.Discard)
	if !errors.Is(err, speech.ErrUnavailable) {
		t.Fatalf("resolveSpeech() error = %v, want ErrUnavailable", err)
	}
}
