package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/speech"
)

type speechSetup struct {
	speaker          speech.Speaker
	synth            speech.Synthesizer
	resolvedProvider string
	// backend tells the web UI who produces audio: "browser" or "openai".
	backend string
	detail  string
}

func resolveSpeech(cfg config.Config, out io.Writer) (speechSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.SpeechProvider))
	if mode == "" {
		mode = "auto"
	}
	console := speech.NewConsoleSpeaker(out)

	tryOpenAI := func() (speechSetup, bool) {
		p, err := speech.NewOpenAISpeaker(speech.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.SpeechOpenAIModel,
			Player:  cfg.SpeechPlayer,
		})
		if err != nil {
			return speechSetup{}, false
		}
		return speechSetup{
			speaker:          speech.NewFailoverSpeaker(p, console),
			synth:            p,
			resolvedProvider: "openai",
			backend:          "openai",
			detail:           "openai speech (console fallback)",
		}, true
	}

	tryCommand := func(fatal bool) (speechSetup, bool, error) {
		p, err := speech.NewCommandSpeaker(cfg.SpeechCommand, cfg.SpeechVoice)
		if err != nil {
			if fatal {
				return speechSetup{}, false, fmt.Errorf("command speech init failed: %w", err)
			}
			return speechSetup{}, false, nil
		}
		return speechSetup{
			speaker:          speech.NewFailoverSpeaker(p, console),
			resolvedProvider: "command",
			backend:          "browser",
			detail:           "local speech engine (console fallback)",
		}, true, nil
	}

	consoleSetup := func(detail string) speechSetup {
		return speechSetup{
			speaker:          console,
			resolvedProvider: "console",
			backend:          "browser",
			detail:           detail,
		}
	}

	switch mode {
	case "openai":
		if setup, ok := tryOpenAI(); ok {
			return setup, nil
		}
		// Without a server key fall back to the local engine rather than
		// refusing to start.
		setup, ok, err := tryCommand(false)
		if err != nil {
			return speechSetup{}, err
		}
		if ok {
			setup.detail = "local speech engine (openai unavailable)"
			return setup, nil
		}
		return speechSetup{}, fmt.Errorf("SPEECH_PROVIDER=openai but OPENAI_API_KEY is not set (and no local speech engine is available)")
	case "command":
		setup, _, err := tryCommand(true)
		return setup, err
	case "console":
		return consoleSetup("console"), nil
	case "none":
		return speechSetup{
			speaker:          speech.NopSpeaker{},
			resolvedProvider: "none",
			backend:          "browser",
			detail:           "speech disabled",
		}, nil
	case "auto":
		if setup, ok := tryOpenAI(); ok {
			return setup, nil
		}
		setup, ok, err := tryCommand(false)
		if err != nil {
			return speechSetup{}, err
		}
		if ok {
			return setup, nil
		}
		return consoleSetup("console (no OPENAI_API_KEY and no local speech engine)"), nil
	default:
		return speechSetup{}, fmt.Errorf("invalid SPEECH_PROVIDER: %q (expected auto|console|command|openai|none)", cfg.SpeechProvider)
	}
}
