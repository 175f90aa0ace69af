package speech

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/antoniostano/aria/internal/persona"
)

func TestOpenAISpeakerSynthesize(t *testing.T) {
	var got struct {
		Model string  `json:"model"`
		Input string  `json:"input"`
		Voice string  `json:"voice"`
		Speed float64 `json:"speed"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	s, err := NewOpenAISpeaker(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewOpenAISpeaker() error = %v", err)
	}
	alien, _ := persona.Resolve(persona.Alien)
	audio, err := s.Synthesize(context.Background(), "hello world", alien)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if audio.Format != "mp3" || string(audio.Data) != "ID3fake" {
		t.Fatalf("audio = %q/%q", audio.Format, audio.Data)
	}
	if got.Voice != "echo" || got.Speed != 0.75 || got.Input != "he.llo wo.rld" || got.Model != "tts-1" {
		t.Fatalf("request = %+v", got)
	}
}

func TestOpenAISpeakerSpeakPipesAudioToPlayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	s, err := NewOpenAISpeaker(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Player: []string{"player", "-"}})
	if err != nil {
		t.Fatalf("NewOpenAISpeaker() error = %v", err)
	}
	var played string
	s.run = func(_ context.Context, stdin io.Reader, name string, args ...string) error {
		b, _ := io.ReadAll(stdin)
		played = name + ":" + string(b)
		return nil
	}
	if err := s.Speak(context.Background(), "hi", persona.VoiceParameters{Rate: 1}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if played != "player:mp3bytes" {
		t.Fatalf("played = %q", played)
	}
}

func TestOpenAISpeakerRequiresKeyAndPlayer(t *testing.T) {
	if _, err := NewOpenAISpeaker(OpenAIConfig{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("NewOpenAISpeaker() error = %v, want ErrUnavailable", err)
	}
	s, err := NewOpenAISpeaker(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAISpeaker() error = %v", err)
	}
	if err := s.Speak(context.Background(), "hi", persona.VoiceParameters{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Speak() without player error = %v, want ErrUnavailable", err)
	}
}
