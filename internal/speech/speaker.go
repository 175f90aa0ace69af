package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/antoniostano/aria/internal/persona"
)

// ErrUnavailable is returned when a speech backend cannot run on this host.
var ErrUnavailable = errors.New("speech backend unavailable")

// Speaker renders a reply audibly (or visibly) in a persona's voice.
type Speaker interface {
	Speak(ctx context.Context, text string, voice persona.VoiceParameters) error
}

// Audio is encoded speech handed to a remote client for playback.
type Audio struct {
	Format string
	Data   []byte
}

// Synthesizer produces audio without playing it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice persona.VoiceParameters) (Audio, error)
}

// ConsoleSpeaker prints what would be spoken. Used when no audio device or
// engine is available.
type ConsoleSpeaker struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSpeaker(out io.Writer) *ConsoleSpeaker {
	if out == nil {
		out = io.Discard
	}
	return &ConsoleSpeaker{out: out}
}

func (s *ConsoleSpeaker) Speak(ctx context.Context, text string, voice persona.VoiceParameters) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = Prepare(text, voice)
	if text == "" {
		return nil
	}
	label := strings.TrimSpace(voice.Label)
	if label == "" {
		label = "ARIA"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.out, "🔊 [%s] %s\n", label, text)
	return err
}

// NopSpeaker discards everything.
type NopSpeaker struct{}

func (NopSpeaker) Speak(context.Context, string, persona.VoiceParameters) error { return nil }
