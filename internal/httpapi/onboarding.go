package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	SpeechProvider string            `json:"speech_provider"`
	SpeechBackend  string            `json:"speech_backend"`
	ReplyModel     string            `json:"reply_model"`
	LivePreset     bool              `json:"live_preset"`
	Checks         []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.SpeechProvider))
	if provider == "" {
		provider = "auto"
	}
	checks := make([]onboardingCheck, 0, 6)
	checks = append(checks, s.liveChecks()...)
	checks = append(checks, s.speechChecks(provider)...)

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		SpeechProvider: provider,
		SpeechBackend:  s.backend,
		ReplyModel:     s.cfg.OpenAIModel,
		LivePreset:     s.cfg.OpenAIAPIKey != "",
		Checks:         checks,
	})
}

func (s *Server) liveChecks() []onboardingCheck {
	out := make([]onboardingCheck, 0, 2)
	if s.cfg.OpenAIAPIKey == "" {
		out = append(out, onboardingCheck{
			ID:     "live_credential",
			Status: "warn",
			Label:  "Live replies",
			Detail: "no server credential; sessions start in demo mode",
			Fix:    "Enter an OpenAI API key in the UI, or set OPENAI_API_KEY before starting the server.",
		})
	} else {
		out = append(out, onboardingCheck{
			ID:     "live_credential",
			Status: "ok",
			Label:  "Live replies",
			Detail: "server credential present",
		})
	}

	if base := strings.TrimSpace(s.cfg.OpenAIBaseURL); base != "" {
		if err := probeEndpoint(base); err != nil {
			out = append(out, onboardingCheck{
				ID:     "live_endpoint",
				Status: "warn",
				Label:  "Completion endpoint",
				Detail: fmt.Sprintf("not reachable (%s)", base),
				Fix:    "Check OPENAI_BASE_URL; live turns will fall back to demo replies.",
			})
		} else {
			out = append(out, onboardingCheck{
				ID:     "live_endpoint",
				Status: "ok",
				Label:  "Completion endpoint",
				Detail: base,
			})
		}
	}
	return out
}

func (s *Server) speechChecks(provider string) []onboardingCheck {
	switch provider {
	case "openai":
		if s.cfg.OpenAIAPIKey == "" {
			return []onboardingCheck{{
				ID:     "speech_openai",
				Status: "error",
				Label:  "Speech (OpenAI)",
				Detail: "OPENAI_API_KEY is not set",
				Fix:    "Set OPENAI_API_KEY or use SPEECH_PROVIDER=auto to let the browser speak.",
			}}
		}
		return []onboardingCheck{{ID: "speech_openai", Status: "ok", Label: "Speech (OpenAI)", Detail: "server audio enabled"}}
	case "command", "auto":
		engine := strings.TrimSpace(s.cfg.SpeechCommand)
		candidates := []string{"espeak-ng", "espeak", "say"}
		if engine != "" {
			candidates = []string{engine}
		}
		for _, c := range candidates {
			if _, err := exec.LookPath(c); err == nil {
				return []onboardingCheck{{ID: "speech_engine", Status: "ok", Label: "Speech engine", Detail: c + " found"}}
			}
		}
		status := "warn"
		if provider == "command" {
			status = "error"
		}
		return []onboardingCheck{{
			ID:     "speech_engine",
			Status: status,
			Label:  "Speech engine",
			Detail: "no local engine found; terminal shells print replies instead",
			Fix:    "Install espeak-ng (Linux) or use macOS say.",
		}}
	case "console":
		return []onboardingCheck{{ID: "speech_console", Status: "ok", Label: "Speech", Detail: "printed to console"}}
	case "none":
		return []onboardingCheck{{ID: "speech_none", Status: "warn", Label: "Speech", Detail: "disabled"}}
	default:
		return []onboardingCheck{{
			ID:     "speech_provider_unknown",
			Status: "warn",
			Label:  "Speech",
			Detail: "unknown provider; expected auto|console|command|openai|none",
		}}
	}
}

func probeEndpoint(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	host := strings.TrimSpace(u.Host)
	if host == "" {
		return fmt.Errorf("host missing")
	}
	addr := host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}
	c, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
	if err != nil {
		return err
	}
	_ = c.Close()
	return nil
}
