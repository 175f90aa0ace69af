package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/antoniostano/aria/internal/persona"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" || cfg.DefaultPersona != persona.Male {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4" || cfg.OpenAIMaxTokens != 500 || cfg.OpenAITemperature != 0.7 {
		t.Fatalf("openai defaults = %q/%d/%g", cfg.OpenAIModel, cfg.OpenAIMaxTokens, cfg.OpenAITemperature)
	}
	if cfg.HistoryMessages != 20 {
		t.Fatalf("HistoryMessages = %d, want 20", cfg.HistoryMessages)
	}
	if cfg.OpenAIAPIKey != "" {
		t.Fatal("OpenAIAPIKey should default to empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9191")
	t.Setenv("ARIA_DEFAULT_PERSONA", "alien")
	t.Setenv("ARIA_LIVE_TIMEOUT", "5s")
	t.Setenv("OPENAI_API_KEY", " sk-env ")
	t.Setenv("OPENAI_TEMPERATURE", "1.2")
	t.Setenv("SPEECH_PROVIDER", "Console")
	t.Setenv("SPEECH_PLAYER", "mpv --no-video -")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9191" || cfg.DefaultPersona != persona.Alien || cfg.LiveTimeout != 5*time.Second {
		t.Fatalf("overrides = %+v", cfg)
	}
	if cfg.OpenAIAPIKey != "sk-env" || cfg.OpenAITemperature != 1.2 {
		t.Fatalf("openai = %q/%g", cfg.OpenAIAPIKey, cfg.OpenAITemperature)
	}
	if cfg.SpeechProvider != "console" {
		t.Fatalf("SpeechProvider = %q, want console", cfg.SpeechProvider)
	}
	if !reflect.DeepEqual(cfg.SpeechPlayer, []string{"mpv", "--no-video", "-"}) {
		t.Fatalf("SpeechPlayer = %v", cfg.SpeechPlayer)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	setCoreEnvEmpty(t)
	path := writeConfig(t, `
[server]
bind_addr = ":7000"
session_inactivity_timeout = "3m"
allow_any_origin = true

[assistant]
default_persona = "Female"
history_messages = 6

[openai]
model = "gpt-4o-mini"
max_tokens = 200

[speech]
provider = "none"
`)
	t.Setenv("ARIA_CONFIG", path)
	t.Setenv("OPENAI_MAX_TOKENS", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfigFile != path {
		t.Fatalf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.BindAddr != ":7000" || cfg.SessionInactivityTimeout != 3*time.Minute || !cfg.AllowAnyOrigin {
		t.Fatalf("server section = %+v", cfg)
	}
	if cfg.DefaultPersona != persona.Female || cfg.HistoryMessages != 6 {
		t.Fatalf("assistant section = %q/%d", cfg.DefaultPersona, cfg.HistoryMessages)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.OpenAIMaxTokens != 300 {
		t.Fatalf("openai = %q/%d, want file model and env tokens", cfg.OpenAIModel, cfg.OpenAIMaxTokens)
	}
	if cfg.SpeechProvider != "none" {
		t.Fatalf("SpeechProvider = %q", cfg.SpeechProvider)
	}
}

func TestLoadRejectsCredentialInFile(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ARIA_CONFIG", writeConfig(t, "[openai]\napi_key = \"sk-file\"\n"))

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("Load() error = %v, want api_key rejection", err)
	}
	if strings.Contains(err.Error(), "sk-file") {
		t.Fatalf("error leaks credential: %v", err)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("ARIA_CONFIG", writeConfig(t, "[server]\nbind = \":1\"\n"))
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "server.bind") {
		t.Fatalf("Load() error = %v, want unknown key", err)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"ARIA_DEFAULT_PERSONA":  "robot",
		"ARIA_HISTORY_MESSAGES": "-1",
		"OPENAI_TEMPERATURE":    "3",
		"OPENAI_MAX_TOKENS":     "0",
		"SPEECH_PROVIDER":       "carrier-pigeon",
		"APP_ALLOW_ANY_ORIGIN":  "maybe",
		"ARIA_LIVE_TIMEOUT":     "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q error = nil", key, value)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aria.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"ARIA_CONFIG",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"ARIA_DEFAULT_PERSONA",
		"ARIA_LIVE_TIMEOUT",
		"ARIA_HISTORY_MESSAGES",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"OPENAI_MAX_TOKENS",
		"OPENAI_TEMPERATURE",
		"SPEECH_PROVIDER",
		"SPEECH_COMMAND",
		"SPEECH_VOICE",
		"SPEECH_OPENAI_MODEL",
		"SPEECH_PLAYER",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
