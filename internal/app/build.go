package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/httpapi"
	"github.com/antoniostano/aria/internal/observability"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/session"
	"github.com/antoniostano/aria/internal/speech"
)

type SpeechInfo struct {
	Provider string
	Backend  string
	Detail   string
}

type BuildOptions struct {
	// LogOutput receives structured logs. Defaults to stderr.
	LogOutput io.Writer
	// SpeechOutput receives console speech lines. Defaults to stdout.
	SpeechOutput io.Writer
}

type BuildResult struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Sessions *session.Manager
	API      *httpapi.Server
	Speaker  speech.Speaker
	Phrases  *speech.PhraseSource
	Speech   SpeechInfo
}

func Build(cfg config.Config, opts BuildOptions) (*BuildResult, error) {
	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	speechOut := opts.SpeechOutput
	if speechOut == nil {
		speechOut = os.Stdout
	}

	logger, err := observability.NewLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	setup, err := resolveSpeech(cfg, speechOut)
	if err != nil {
		return nil, err
	}

	b := &BuildResult{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Speaker: setup.speaker,
		Phrases: speech.NewPhraseSource(),
		Speech: SpeechInfo{
			Provider: setup.resolvedProvider,
			Backend:  setup.backend,
			Detail:   setup.detail,
		},
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout, b.NewAssistant)
	sessions.SetExpireHook(func(s session.Session) {
		metrics.ObserveSessionEvent("expired")
		metrics.SetActiveSessions(sessions.ActiveCount())
		logger.Info("session expired", slog.String("session_id", s.ID))
	})
	b.Sessions = sessions

	b.API = httpapi.New(cfg, sessions, httpapi.Options{
		Metrics:       metrics,
		Synthesizer:   setup.synth,
		SpeechBackend: setup.backend,
		Phrases:       b.Phrases,
		Logger:        logger,
	})
	return b, nil
}

// NewAssistant builds a controller with its own completer, so conversation
// history is never shared between sessions. A server-side OPENAI_API_KEY
// starts the controller in live mode.
func (b *BuildResult) NewAssistant(tag persona.Tag) (*assistant.Controller, error) {
	cfg := b.Config
	completer := brain.NewOpenAICompleter(brain.OpenAIConfig{
		BaseURL:         cfg.OpenAIBaseURL,
		Model:           cfg.OpenAIModel,
		MaxTokens:       cfg.OpenAIMaxTokens,
		Temperature:     float32(cfg.OpenAITemperature),
		HistoryMessages: cfg.HistoryMessages,
	})
	gen := brain.NewGenerator(completer, brain.Config{
		LiveTimeout: cfg.LiveTimeout,
		Logger:      b.Logger,
	})
	ctrl, err := assistant.NewController(gen, assistant.Options{
		Persona:  tag,
		Logger:   b.Logger,
		Observer: b.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if cfg.OpenAIAPIKey != "" {
		if err := ctrl.SetCredential(cfg.OpenAIAPIKey); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}
