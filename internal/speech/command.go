package speech

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/antoniostano/aria/internal/persona"
)

// BaseWordsPerMinute is the speaking rate of a persona with Rate 1.0.
const BaseWordsPerMinute = 175

// CommandSpeaker speaks through a local engine binary (espeak, espeak-ng or say).
type CommandSpeaker struct {
	binary string
	voice  string
	// run is swapped in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// NewCommandSpeaker resolves binary on PATH. An empty binary picks the first
// available engine.
func NewCommandSpeaker(binary, voice string) (*CommandSpeaker, error) {
	candidates := []string{"espeak-ng", "espeak", "say"}
	if b := strings.TrimSpace(binary); b != "" {
		candidates = []string{b}
	}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return &CommandSpeaker{binary: path, voice: strings.TrimSpace(voice), run: runCommand}, nil
		}
	}
	return nil, fmt.Errorf("%w: none of %s found on PATH", ErrUnavailable, strings.Join(candidates, ", "))
}

func (s *CommandSpeaker) Speak(ctx context.Context, text string, voice persona.VoiceParameters) error {
	text = Prepare(text, voice)
	if text == "" {
		return nil
	}
	return s.run(ctx, s.binary, s.args(text, voice)...)
}

func (s *CommandSpeaker) args(text string, voice persona.VoiceParameters) []string {
	wpm := strconv.Itoa(WordsPerMinute(voice.Rate))
	if filepath.Base(s.binary) == "say" {
		args := []string{"-r", wpm}
		if s.voice != "" {
			args = append(args, "-v", s.voice)
		}
		return append(args, text)
	}
	args := []string{"-s", wpm, "-p", strconv.Itoa(espeakPitch(voice.Pitch))}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	return append(args, "--", text)
}

// WordsPerMinute converts a relative persona rate to an engine rate.
func WordsPerMinute(rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(BaseWordsPerMinute * rate))
}

func espeakPitch(p persona.Pitch) int {
	switch p {
	case persona.PitchHigh:
		return 75
	case persona.PitchRobotic:
		return 20
	default:
		return 50
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			return fmt.Errorf("%s: %w", filepath.Base(name), err)
		}
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, detail)
	}
	return nil
}
