package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/antoniostano/aria/internal/persona"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "aria "+Version {
		t.Fatalf("version output = %q", got)
	}
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	t.Setenv("ARIA_CONFIG", "")
	t.Setenv("SPEECH_PROVIDER", "")
	t.Setenv("ARIA_DEFAULT_PERSONA", "")
	setFlags(t, "ALIEN", "None", "127.0.0.1:9999")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.DefaultPersona != persona.Alien || cfg.SpeechProvider != "none" || cfg.BindAddr != "127.0.0.1:9999" {
		t.Fatalf("cfg = persona %s speech %s bind %s", cfg.DefaultPersona, cfg.SpeechProvider, cfg.BindAddr)
	}
}

func TestLoadConfigRejectsBadFlags(t *testing.T) {
	t.Setenv("ARIA_CONFIG", "")
	setFlags(t, "robot", "", "")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("loadConfig() error = nil for unknown persona")
	}

	setFlags(t, "", "morse", "")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("loadConfig() error = nil for unknown speech provider")
	}
}

func setFlags(t *testing.T, p, s, b string) {
	t.Helper()
	flagPersona, flagSpeech, flagBind = p, s, b
	t.Cleanup(func() {
		flagPersona, flagSpeech, flagBind = "", "", ""
	})
}
