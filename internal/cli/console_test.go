package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/speech"
)

func TestConsoleDemoConversation(t *testing.T) {
	out, ctrl := runConsoleScript(t, nil, "hello\nbye\n/history\n")

	if !strings.Contains(out, "ARIA [demo]: "+brain.DemoReply("hello")) {
		t.Fatalf("missing greeting reply in %q", out)
	}
	if !strings.Contains(out, "🔊 [Male] ") {
		t.Fatalf("missing console speech line in %q", out)
	}
	if !strings.Contains(out, "  0. You: hello") || !strings.Contains(out, "  3. ARIA: ") {
		t.Fatalf("history not printed in order: %q", out)
	}
	if got := len(ctrl.Transcript()); got != 4 {
		t.Fatalf("transcript len = %d, want 4", got)
	}
}

func TestConsoleEmptyLine(t *testing.T) {
	out, ctrl := runConsoleScript(t, nil, "   \n")
	if !strings.Contains(out, "Please type a message first.") {
		t.Fatalf("output = %q", out)
	}
	if got := len(ctrl.Transcript()); got != 0 {
		t.Fatalf("transcript len = %d, want 0", got)
	}
}

func TestConsolePersonaCommand(t *testing.T) {
	out, ctrl := runConsoleScript(t, nil, "/persona alien\nhello\n/persona robot\n")
	if ctrl.Persona() != persona.Alien {
		t.Fatalf("Persona() = %s, want Alien", ctrl.Persona())
	}
	if !strings.Contains(out, "Voice set to Alien.") || !strings.Contains(out, "🔊 [Alien] ") {
		t.Fatalf("output = %q", out)
	}
	if !strings.Contains(out, `Unknown persona "robot"`) {
		t.Fatalf("unknown persona not reported: %q", out)
	}
}

func TestConsoleCredentialCommands(t *testing.T) {
	const secret = "sk-console-secret"
	completer := &stubCompleter{reply: "A live answer."}
	out, ctrl := runConsoleScript(t, completer, "/key "+secret+"\nwhat's new\n/live off\nhello\n/live on\n/nokey\n/live on\n/status\n")

	if strings.Contains(out, secret) {
		t.Fatalf("console echoed the credential: %q", out)
	}
	if !strings.Contains(out, "ARIA [live]: A live answer.") {
		t.Fatalf("missing live reply: %q", out)
	}
	if !strings.Contains(out, "ARIA [demo]: "+brain.DemoReply("hello")) {
		t.Fatalf("missing demo reply after /live off: %q", out)
	}
	if !strings.Contains(out, "Set an API key first with /key.") {
		t.Fatalf("/live on without key not rejected: %q", out)
	}
	if !strings.Contains(out, "API key: no") {
		t.Fatalf("status still reports a key: %q", out)
	}
	if ctrl.HasCredential() || ctrl.Mode() != brain.ModeDemo {
		t.Fatalf("credential=%v mode=%s after /nokey", ctrl.HasCredential(), ctrl.Mode())
	}
	if completer.calls != 1 {
		t.Fatalf("completer calls = %d, want 1", completer.calls)
	}
}

func TestConsoleLiveFailureFallsBack(t *testing.T) {
	completer := &stubCompleter{err: &brain.StatusError{Code: 401, Err: errors.New("bad key")}}
	out, _ := runConsoleScript(t, completer, "/key sk-wrong\nhello\n")
	if !strings.Contains(out, "(live reply failed: auth; answering from demo rules)") {
		t.Fatalf("failure not reported: %q", out)
	}
	if !strings.Contains(out, "ARIA [demo]: "+brain.DemoReply("hello")) {
		t.Fatalf("missing fallback reply: %q", out)
	}
}

func TestConsoleListenResetAndQuit(t *testing.T) {
	out, ctrl := runConsoleScript(t, nil, "/listen\n/reset\n/history\n/quit\nhello\n")
	if !strings.Contains(out, "🎤 Heard: hi") {
		t.Fatalf("listen output = %q", out)
	}
	if !strings.Contains(out, "Conversation cleared.") || !strings.Contains(out, "No conversation yet.") {
		t.Fatalf("reset output = %q", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "Goodbye!") {
		t.Fatalf("did not stop at /quit: %q", out)
	}
	if got := len(ctrl.Transcript()); got != 0 {
		t.Fatalf("line after /quit was processed: %d turns", got)
	}
}

func TestConsoleStopsOnCancel(t *testing.T) {
	ctrl := newTestController(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	c := NewConsole(ConsoleOptions{Assistant: ctrl, In: blockingReader{}, Out: &out})
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestPrintPersonas(t *testing.T) {
	var out bytes.Buffer
	if err := printPersonas(&out); err != nil {
		t.Fatalf("printPersonas() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[3], "Alien") || !strings.Contains(lines[3], "0.75") || !strings.Contains(lines[3], "robotic") {
		t.Fatalf("alien row = %q", lines[3])
	}
}

func runConsoleScript(t *testing.T, completer brain.Completer, script string) (string, *assistant.Controller) {
	t.Helper()
	ctrl := newTestController(t, completer)
	var out bytes.Buffer
	c := NewConsole(ConsoleOptions{
		Assistant: ctrl,
		Speaker:   speech.NewConsoleSpeaker(&out),
		Phrases:   speech.NewPhraseSource("hi"),
		In:        strings.NewReader(script),
		Out:       &out,
	})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String(), ctrl
}

func newTestController(t *testing.T, completer brain.Completer) *assistant.Controller {
	t.Helper()
	ctrl, err := assistant.NewController(brain.NewGenerator(completer, brain.Config{}), assistant.Options{})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return ctrl
}

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
