package speech

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/antoniostano/aria/internal/persona"
)

// FailoverSpeaker prefers primary and switches to fallback when primary
// fails. Once fallback succeeds it stays active until it fails itself; then
// primary is retried.
type FailoverSpeaker struct {
	primary        Speaker
	fallback       Speaker
	fallbackActive atomic.Bool
}

func NewFailoverSpeaker(primary, fallback Speaker) *FailoverSpeaker {
	return &FailoverSpeaker{primary: primary, fallback: fallback}
}

func (s *FailoverSpeaker) Speak(ctx context.Context, text string, voice persona.VoiceParameters) error {
	if s.fallbackActive.Load() {
		fbErr := s.fallback.Speak(ctx, text, voice)
		if fbErr == nil {
			return nil
		}
		if prErr := s.primary.Speak(ctx, text, voice); prErr != nil {
			return fmt.Errorf("speech fallback failed: %v; speech primary failed: %w", fbErr, prErr)
		}
		s.fallbackActive.Store(false)
		return nil
	}

	prErr := s.primary.Speak(ctx, text, voice)
	if prErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return prErr
	}
	if fbErr := s.fallback.Speak(ctx, text, voice); fbErr != nil {
		return fmt.Errorf("speech primary failed: %v; speech fallback failed: %w", prErr, fbErr)
	}
	s.fallbackActive.Store(true)
	return nil
}

// FallbackActive reports whether the fallback is currently preferred.
func (s *FailoverSpeaker) FallbackActive() bool {
	return s.fallbackActive.Load()
}
