package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/antoniostano/aria/internal/persona"
)

// Config contains all runtime settings for the assistant shells.
type Config struct {
	ConfigFile string

	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string
	AllowAnyOrigin           bool
	LogLevel                 string
	LogFormat                string

	DefaultPersona  persona.Tag
	LiveTimeout     time.Duration
	HistoryMessages int

	// OpenAIAPIKey is only ever read from the environment and stays in memory.
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	SpeechProvider    string
	SpeechCommand     string
	SpeechVoice       string
	SpeechOpenAIModel string
	SpeechPlayer      []string
}

// fileConfig mirrors the optional TOML file. Durations are strings such as "30s".
type fileConfig struct {
	Server struct {
		BindAddr                 string `toml:"bind_addr"`
		ShutdownTimeout          string `toml:"shutdown_timeout"`
		SessionInactivityTimeout string `toml:"session_inactivity_timeout"`
		MetricsNamespace         string `toml:"metrics_namespace"`
		AllowAnyOrigin           *bool  `toml:"allow_any_origin"`
		LogLevel                 string `toml:"log_level"`
		LogFormat                string `toml:"log_format"`
	} `toml:"server"`
	Assistant struct {
		DefaultPersona  string `toml:"default_persona"`
		LiveTimeout     string `toml:"live_timeout"`
		HistoryMessages *int   `toml:"history_messages"`
	} `toml:"assistant"`
	OpenAI struct {
		BaseURL     string   `toml:"base_url"`
		Model       string   `toml:"model"`
		MaxTokens   *int     `toml:"max_tokens"`
		Temperature *float64 `toml:"temperature"`
	} `toml:"openai"`
	Speech struct {
		Provider    string   `toml:"provider"`
		Command     string   `toml:"command"`
		Voice       string   `toml:"voice"`
		OpenAIModel string   `toml:"openai_model"`
		Player      []string `toml:"player"`
	} `toml:"speech"`
}

func Default() Config {
	return Config{
		BindAddr:                 ":8080",
		ShutdownTimeout:          10 * time.Second,
		SessionInactivityTimeout: 10 * time.Minute,
		MetricsNamespace:         "aria",
		LogLevel:                 "info",
		LogFormat:                "json",
		DefaultPersona:           persona.Male,
		LiveTimeout:              30 * time.Second,
		HistoryMessages:          20,
		OpenAIModel:              "gpt-4",
		OpenAIMaxTokens:          500,
		OpenAITemperature:        0.7,
		SpeechProvider:           "auto",
		SpeechOpenAIModel:        "tts-1",
		SpeechPlayer:             []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"},
	}
}

// Load applies defaults, then the TOML file named by ARIA_CONFIG, then
// environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("ARIA_CONFIG")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = path
	}

	var err error
	cfg.BindAddr = envOrDefault("APP_BIND_ADDR", cfg.BindAddr)
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout); err != nil {
		return Config{}, err
	}
	cfg.MetricsNamespace = envOrDefault("APP_METRICS_NAMESPACE", cfg.MetricsNamespace)
	if cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin); err != nil {
		return Config{}, err
	}
	cfg.LogLevel = envOrDefault("APP_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOrDefault("APP_LOG_FORMAT", cfg.LogFormat)

	if raw := strings.TrimSpace(os.Getenv("ARIA_DEFAULT_PERSONA")); raw != "" {
		if cfg.DefaultPersona, err = persona.Parse(raw); err != nil {
			return Config{}, fmt.Errorf("ARIA_DEFAULT_PERSONA: %w", err)
		}
	}
	if cfg.LiveTimeout, err = durationFromEnv("ARIA_LIVE_TIMEOUT", cfg.LiveTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HistoryMessages, err = intFromEnv("ARIA_HISTORY_MESSAGES", cfg.HistoryMessages); err != nil {
		return Config{}, err
	}

	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = envOrDefault("OPENAI_MODEL", cfg.OpenAIModel)
	if cfg.OpenAIMaxTokens, err = intFromEnv("OPENAI_MAX_TOKENS", cfg.OpenAIMaxTokens); err != nil {
		return Config{}, err
	}
	if cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature); err != nil {
		return Config{}, err
	}

	cfg.SpeechProvider = strings.ToLower(envOrDefault("SPEECH_PROVIDER", cfg.SpeechProvider))
	cfg.SpeechCommand = envOrDefault("SPEECH_COMMAND", cfg.SpeechCommand)
	cfg.SpeechVoice = envOrDefault("SPEECH_VOICE", cfg.SpeechVoice)
	cfg.SpeechOpenAIModel = envOrDefault("SPEECH_OPENAI_MODEL", cfg.SpeechOpenAIModel)
	if raw := strings.TrimSpace(os.Getenv("SPEECH_PLAYER")); raw != "" {
		cfg.SpeechPlayer = strings.Fields(raw)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BindAddr) == "" {
		errs = append(errs, errors.New("bind address is empty"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if c.SessionInactivityTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session inactivity timeout must be positive, got %s", c.SessionInactivityTimeout))
	}
	if c.LiveTimeout < 0 {
		errs = append(errs, fmt.Errorf("live timeout must not be negative, got %s", c.LiveTimeout))
	}
	if c.HistoryMessages < 0 {
		errs = append(errs, fmt.Errorf("history messages must not be negative, got %d", c.HistoryMessages))
	}
	if c.OpenAIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("openai max tokens must be positive, got %d", c.OpenAIMaxTokens))
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		errs = append(errs, fmt.Errorf("openai temperature must be within [0,2], got %g", c.OpenAITemperature))
	}
	if !c.DefaultPersona.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", persona.ErrUnknownPersona, string(c.DefaultPersona)))
	}
	switch c.SpeechProvider {
	case "auto", "console", "command", "openai", "none":
	default:
		errs = append(errs, fmt.Errorf("invalid SPEECH_PROVIDER: %q (expected auto|console|command|openai|none)", c.SpeechProvider))
	}
	return errors.Join(errs...)
}

func applyFile(cfg *Config, path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if meta.IsDefined("openai", "api_key") {
		return fmt.Errorf("config file %s: openai.api_key is not accepted, use OPENAI_API_KEY", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	setString(&cfg.BindAddr, fc.Server.BindAddr)
	setString(&cfg.MetricsNamespace, fc.Server.MetricsNamespace)
	setString(&cfg.LogLevel, fc.Server.LogLevel)
	setString(&cfg.LogFormat, fc.Server.LogFormat)
	if fc.Server.AllowAnyOrigin != nil {
		cfg.AllowAnyOrigin = *fc.Server.AllowAnyOrigin
	}
	if err := setDuration(&cfg.ShutdownTimeout, "server.shutdown_timeout", fc.Server.ShutdownTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionInactivityTimeout, "server.session_inactivity_timeout", fc.Server.SessionInactivityTimeout); err != nil {
		return err
	}

	if raw := strings.TrimSpace(fc.Assistant.DefaultPersona); raw != "" {
		tag, err := persona.Parse(raw)
		if err != nil {
			return fmt.Errorf("assistant.default_persona: %w", err)
		}
		cfg.DefaultPersona = tag
	}
	if err := setDuration(&cfg.LiveTimeout, "assistant.live_timeout", fc.Assistant.LiveTimeout); err != nil {
		return err
	}
	if fc.Assistant.HistoryMessages != nil {
		cfg.HistoryMessages = *fc.Assistant.HistoryMessages
	}

	setString(&cfg.OpenAIBaseURL, fc.OpenAI.BaseURL)
	setString(&cfg.OpenAIModel, fc.OpenAI.Model)
	if fc.OpenAI.MaxTokens != nil {
		cfg.OpenAIMaxTokens = *fc.OpenAI.MaxTokens
	}
	if fc.OpenAI.Temperature != nil {
		cfg.OpenAITemperature = *fc.OpenAI.Temperature
	}

	setString(&cfg.SpeechProvider, strings.ToLower(fc.Speech.Provider))
	setString(&cfg.SpeechCommand, fc.Speech.Command)
	setString(&cfg.SpeechVoice, fc.Speech.Voice)
	setString(&cfg.SpeechOpenAIModel, fc.Speech.OpenAIModel)
	if len(fc.Speech.Player) > 0 {
		cfg.SpeechPlayer = fc.Speech.Player
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s parse error: %w", key, err)
	}
	*dst = d
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
