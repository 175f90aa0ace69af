package speech

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/antoniostano/aria/internal/persona"
)

func TestConsoleSpeakerPrintsLabelledLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSpeaker(&buf)
	female, _ := persona.Resolve(persona.Female)

	if err := s.Speak(context.Background(), "Hello *there*", female); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	want := "🔊 [" + female.Label + "] Hello there\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestConsoleSpeakerSkipsEmptyText(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSpeaker(&buf)
	if err := s.Speak(context.Background(), " ** ", persona.VoiceParameters{}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("output = %q, want empty", buf.String())
	}
}

func TestCommandSpeakerArgs(t *testing.T) {
	alien, _ := persona.Resolve(persona.Alien)
	female, _ := persona.Resolve(persona.Female)

	var gotName string
	var gotArgs []string
	espeak := &CommandSpeaker{binary: "/usr/bin/espeak", run: func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}}
	if err := espeak.Speak(context.Background(), "hello world", alien); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	wantArgs := []string{"-s", "131", "-p", "20", "--", "he.llo wo.rld"}
	if gotName != "/usr/bin/espeak" || !reflect.DeepEqual(gotArgs, wantArgs) {
		t.Fatalf("espeak call = %s %v, want %v", gotName, gotArgs, wantArgs)
	}

	say := &CommandSpeaker{binary: "/usr/bin/say", voice: "Victoria", run: espeak.run}
	if err := say.Speak(context.Background(), "hi", female); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	wantArgs = []string{"-r", "201", "-v", "Victoria", "hi"}
	if !reflect.DeepEqual(gotArgs, wantArgs) {
		t.Fatalf("say args = %v, want %v", gotArgs, wantArgs)
	}
}

func TestWordsPerMinuteFollowsPersonaOrder(t *testing.T) {
	var rates []int
	for _, tag := range []persona.Tag{persona.Female, persona.Male, persona.Alien} {
		p, _ := persona.Resolve(tag)
		rates = append(rates, WordsPerMinute(p.Rate))
	}
	if !(rates[0] > rates[1] && rates[1] > rates[2]) {
		t.Fatalf("words per minute = %v, want strictly decreasing", rates)
	}
	if got := WordsPerMinute(0); got != BaseWordsPerMinute {
		t.Fatalf("WordsPerMinute(0) = %d, want %d", got, BaseWordsPerMinute)
	}
}

func TestNewCommandSpeakerMissingBinary(t *testing.T) {
	_, err := NewCommandSpeaker("definitely-not-a-speech-engine", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("NewCommandSpeaker() error = %v, want ErrUnavailable", err)
	}
}

func TestFailoverSpeakerSwitchesAndRecovers(t *testing.T) {
	primary := &stubSpeaker{err: errors.New("engine crashed")}
	fallback := &stubSpeaker{}
	s := NewFailoverSpeaker(primary, fallback)
	ctx := context.Background()

	if err := s.Speak(ctx, "one", persona.VoiceParameters{}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if !s.FallbackActive() || fallback.calls != 1 {
		t.Fatalf("fallback active = %t calls = %d", s.FallbackActive(), fallback.calls)
	}

	if err := s.Speak(ctx, "two", persona.VoiceParameters{}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("primary calls = %d, want 1 while fallback is active", primary.calls)
	}

	fallback.err = errors.New("fallback down")
	primary.err = nil
	if err := s.Speak(ctx, "three", persona.VoiceParameters{}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	if s.FallbackActive() {
		t.Fatal("fallback still active after primary recovered")
	}
}

func TestFailoverSpeakerBothFail(t *testing.T) {
	s := NewFailoverSpeaker(&stubSpeaker{err: errors.New("a")}, &stubSpeaker{err: errors.New("b")})
	err := s.Speak(context.Background(), "x", persona.VoiceParameters{})
	if err == nil || !strings.Contains(err.Error(), "primary failed") {
		t.Fatalf("Speak() error = %v", err)
	}
}

func TestPhraseSourceCycles(t *testing.T) {
	p := NewPhraseSource("a", "b")
	got := []string{p.Listen(), p.Listen(), p.Listen()}
	if !reflect.DeepEqual(got, []string{"a", "b", "a"}) {
		t.Fatalf("Listen() sequence = %v", got)
	}
	if first := NewPhraseSource().Listen(); first != demoPhrases[0] {
		t.Fatalf("default first phrase = %q", first)
	}
}

type stubSpeaker struct {
	err   error
	calls int
}

func (s *stubSpeaker) Speak(context.Context, string, persona.VoiceParameters) error {
	s.calls++
	return s.err
}
