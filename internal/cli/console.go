package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/speech"
	"github.com/antoniostano/aria/internal/transcript"
)

const consoleHelp = `Commands:
  /persona <male|female|alien>  switch voice
  /key <api key>                use live replies
  /nokey                        forget the API key
  /live on|off                  toggle live replies
  /listen                       simulate the microphone
  /history                      show the conversation
  /reset                        clear the conversation
  /status                       show mode and voice
  /quit                         exit
Anything else is sent to ARIA.`

type ConsoleOptions struct {
	Assistant assistant.Assistant
	Speaker   speech.Speaker
	Phrases   *speech.PhraseSource
	In        io.Reader
	Out       io.Writer
}

// Console is the line-oriented shell used when stdin is not a terminal.
type Console struct {
	assistant assistant.Assistant
	speaker   speech.Speaker
	phrases   *speech.PhraseSource
	in        io.Reader
	out       io.Writer
}

func NewConsole(opts ConsoleOptions) *Console {
	phrases := opts.Phrases
	if phrases == nil {
		phrases = speech.NewPhraseSource()
	}
	speaker := opts.Speaker
	if speaker == nil {
		speaker = speech.NopSpeaker{}
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Console{
		assistant: opts.Assistant,
		speaker:   speaker,
		phrases:   phrases,
		in:        opts.In,
		out:       out,
	}
}

// Run reads lines until EOF, /quit or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	st := c.assistant.Status()
	fmt.Fprintf(c.out, "ARIA voice assistant (%s mode, %s voice). Type /help for commands.\n", st.Mode, st.Persona)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(c.out, "You: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}
		if quit := c.handleLine(ctx, line); quit {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
	}
}

// handleLine processes one input line and reports whether the shell should exit.
func (c *Console) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		c.turn(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
	case "/persona":
		tag, err := persona.Parse(arg)
		if err == nil {
			err = c.assistant.SetPersona(tag)
		}
		if err != nil {
			fmt.Fprintf(c.out, "Unknown persona %q. Choose male, female or alien.\n", arg)
			return false
		}
		fmt.Fprintf(c.out, "Voice set to %s.\n", tag)
	case "/key":
		if err := c.assistant.SetCredential(arg); err != nil {
			fmt.Fprintln(c.out, "Usage: /key <api key>")
			return false
		}
		fmt.Fprintln(c.out, "API key set. Live replies enabled.")
	case "/nokey":
		c.assistant.ClearCredential()
		fmt.Fprintln(c.out, "API key removed. Demo mode.")
	case "/live":
		switch strings.ToLower(arg) {
		case "on":
			if err := c.assistant.EnableLive(); err != nil {
				fmt.Fprintln(c.out, "Set an API key first with /key.")
				return false
			}
			fmt.Fprintln(c.out, "Live mode.")
		case "off":
			c.assistant.DisableLive()
			fmt.Fprintln(c.out, "Demo mode.")
		default:
			fmt.Fprintln(c.out, "Usage: /live on|off")
		}
	case "/listen":
		heard := c.phrases.Listen()
		fmt.Fprintf(c.out, "🎤 Heard: %s\n", heard)
		c.turn(ctx, heard)
	case "/history":
		c.printHistory()
	case "/reset":
		c.assistant.Reset()
		fmt.Fprintln(c.out, "Conversation cleared.")
	case "/status":
		st := c.assistant.Status()
		key := "no"
		if st.HasCredential {
			key = "yes"
		}
		fmt.Fprintf(c.out, "Mode: %s  Voice: %s  API key: %s  Turns: %d\n", st.Mode, st.Persona, key, st.Turns)
	default:
		fmt.Fprintf(c.out, "Unknown command %s. Type /help.\n", cmd)
	}
	return false
}

func (c *Console) turn(ctx context.Context, text string) {
	reply, err := c.assistant.HandleTurn(ctx, text)
	if errors.Is(err, assistant.ErrEmptyInput) {
		fmt.Fprintln(c.out, "Please type a message first.")
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if f := reply.Failure; f != nil {
		fmt.Fprintf(c.out, "(live reply failed: %s; answering from demo rules)\n", f.Kind)
	}
	tag := "demo"
	if reply.Mode == brain.ModeLive {
		tag = "live"
	}
	fmt.Fprintf(c.out, "ARIA [%s]: %s\n", tag, reply.Text)
	if err := c.speaker.Speak(ctx, reply.Text, reply.Speech); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(c.out, "(speech unavailable: %v)\n", err)
	}
}

func (c *Console) printHistory() {
	turns := c.assistant.Transcript()
	if len(turns) == 0 {
		fmt.Fprintln(c.out, "No conversation yet.")
		return
	}
	for _, t := range turns {
		who := "ARIA"
		if t.Speaker == transcript.SpeakerUser {
			who = "You"
		}
		fmt.Fprintf(c.out, "%3d. %s: %s\n", t.Seq, who, t.Text)
	}
}
