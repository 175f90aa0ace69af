package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/antoniostano/aria/internal/persona"
)

// OpenAIConfig configures hosted speech synthesis.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Player receives mp3 bytes on stdin, e.g. "ffplay -nodisp -autoexit -loglevel quiet -".
	// Empty disables local playback; Synthesize still works.
	Player []string
}

// OpenAISpeaker synthesizes speech with the OpenAI audio API.
type OpenAISpeaker struct {
	client *openai.Client
	model  openai.SpeechModel
	player []string
	run    func(ctx context.Context, stdin io.Reader, name string, args ...string) error
}

func NewOpenAISpeaker(cfg OpenAIConfig) (*OpenAISpeaker, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("%w: openai speech requires OPENAI_API_KEY", ErrUnavailable)
	}
	clientCfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	model := openai.SpeechModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = openai.TTSModel1
	}
	return &OpenAISpeaker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		player: cfg.Player,
		run:    runWithStdin,
	}, nil
}

func (s *OpenAISpeaker) Synthesize(ctx context.Context, text string, voice persona.VoiceParameters) (Audio, error) {
	text = Prepare(text, voice)
	if text == "" {
		return Audio{}, nil
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openAIVoice(voice.Pitch),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          openAISpeed(voice.Rate),
	})
	if err != nil {
		return Audio{}, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("read openai speech: %w", err)
	}
	return Audio{Format: "mp3", Data: data}, nil
}

func (s *OpenAISpeaker) Speak(ctx context.Context, text string, voice persona.VoiceParameters) error {
	if len(s.player) == 0 {
		return fmt.Errorf("%w: no audio player configured", ErrUnavailable)
	}
	audio, err := s.Synthesize(ctx, text, voice)
	if err != nil {
		return err
	}
	if len(audio.Data) == 0 {
		return nil
	}
	return s.run(ctx, bytes.NewReader(audio.Data), s.player[0], s.player[1:]...)
}

func openAIVoice(p persona.Pitch) openai.SpeechVoice {
	switch p {
	case persona.PitchHigh:
		return openai.VoiceNova
	case persona.PitchRobotic:
		return openai.VoiceEcho
	default:
		return openai.VoiceOnyx
	}
}

// openAISpeed clamps to the API's accepted 0.25..4.0 range.
func openAISpeed(rate float64) float64 {
	switch {
	case rate <= 0:
		return 1
	case rate < 0.25:
		return 0.25
	case rate > 4:
		return 4
	default:
		return rate
	}
}

func runWithStdin(ctx context.Context, stdin io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	if out, err := cmd.CombinedOutput(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(out) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
