package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/transcript"
)

var (
	ErrEmptyInput         = errors.New("empty input")
	ErrEmptyCredential    = errors.New("credential is empty")
	ErrCredentialRequired = errors.New("live mode requires a credential")
)

// Assistant is the capability every front-end consumes.
type Assistant interface {
	HandleTurn(ctx context.Context, text string) (Reply, error)
	SetPersona(tag persona.Tag) error
	SetCredential(credential string) error
	ClearCredential()
	EnableLive() error
	DisableLive()
	Transcript() []transcript.Turn
	Reset()
	Status() Status
}

// Generator produces reply text for a turn.
type Generator interface {
	Generate(ctx context.Context, req brain.Request) brain.Result
	ResetHistory()
}

// Observer receives per-turn telemetry. Implementations must not block.
type Observer interface {
	ObserveTurn(mode brain.Mode, latency time.Duration)
	ObserveLiveFailure(f *brain.LiveFailure)
	ObserveEmptyInput()
}

// Reply is everything a front-end needs to render and speak one answer.
type Reply struct {
	Text          string                  `json:"text"`
	Mode          brain.Mode              `json:"mode"`
	Persona       persona.Tag             `json:"persona"`
	Speech        persona.VoiceParameters `json:"speech"`
	Failure       *brain.LiveFailure      `json:"-"`
	UserTurn      transcript.Turn         `json:"user_turn"`
	AssistantTurn transcript.Turn         `json:"assistant_turn"`
}

// Status is a credential-free view of the controller state.
type Status struct {
	Mode          brain.Mode         `json:"mode"`
	Persona       persona.Tag        `json:"persona"`
	HasCredential bool               `json:"has_credential"`
	Turns         int                `json:"turns"`
	Summary       transcript.Summary `json:"summary"`
}

// Options configures a Controller.
type Options struct {
	Persona  persona.Tag
	Logger   *slog.Logger
	Observer Observer
}

// Controller runs one interaction turn at a time and owns the session's
// log, mode, credential and persona.
type Controller struct {
	gen      Generator
	log      *transcript.Log
	logger   *slog.Logger
	observer Observer

	// turnMu serializes HandleTurn so appends from two turns never interleave.
	turnMu sync.Mutex

	mu         sync.RWMutex
	mode       brain.Mode
	credential string
	persona    persona.Tag
}

var _ Assistant = (*Controller)(nil)

func NewController(gen Generator, opts Options) (*Controller, error) {
	if gen == nil {
		return nil, errors.New("assistant: generator is required")
	}
	tag := opts.Persona
	if tag == "" {
		tag = persona.Male
	}
	if _, err := persona.Resolve(tag); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		gen:      gen,
		log:      transcript.NewLog(),
		logger:   logger,
		observer: opts.Observer,
		mode:     brain.ModeDemo,
		persona:  tag,
	}, nil
}

// HandleTurn records the user's text, produces a reply and records it.
// Whitespace-only input is rejected with ErrEmptyInput before any state changes.
func (c *Controller) HandleTurn(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		if c.observer != nil {
			c.observer.ObserveEmptyInput()
		}
		return Reply{}, ErrEmptyInput
	}

	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.RLock()
	mode, credential := c.mode, c.credential
	c.mu.RUnlock()

	start := time.Now()
	userTurn := c.log.Append(transcript.SpeakerUser, text)
	res := c.gen.Generate(ctx, brain.Request{Text: text, Mode: mode, Credential: credential})
	assistantTurn := c.log.Append(transcript.SpeakerAssistant, res.Text)

	// Persona is read after generation so a switch during a slow live call
	// applies to the reply that is about to be spoken.
	c.mu.RLock()
	tag := c.persona
	c.mu.RUnlock()
	speech, err := persona.Resolve(tag)
	if err != nil {
		// Unreachable: SetPersona validates tags.
		c.logger.ErrorContext(ctx, "persona resolve failed", slog.String("persona", string(tag)))
		speech, _ = persona.Resolve(persona.Male)
		tag = persona.Male
	}

	if c.observer != nil {
		c.observer.ObserveTurn(res.Mode, time.Since(start))
		if res.Failure != nil {
			c.observer.ObserveLiveFailure(res.Failure)
		}
	}
	c.logger.DebugContext(ctx, "turn handled",
		slog.Int("seq", assistantTurn.Seq),
		slog.String("mode", string(res.Mode)),
		slog.String("persona", string(tag)),
	)

	return Reply{
		Text:          res.Text,
		Mode:          res.Mode,
		Persona:       tag,
		Speech:        speech,
		Failure:       res.Failure,
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
	}, nil
}

func (c *Controller) SetPersona(tag persona.Tag) error {
	if _, err := persona.Resolve(tag); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persona = tag
	return nil
}

func (c *Controller) Persona() persona.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persona
}

// Voice resolves the parameters of the current persona.
func (c *Controller) Voice() persona.VoiceParameters {
	p, _ := persona.Resolve(c.Persona())
	return p
}

// SetCredential accepts a non-empty credential and switches to live mode.
func (c *Controller) SetCredential(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrEmptyCredential
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = credential
	c.mode = brain.ModeLive
	return nil
}

// ClearCredential forgets the credential and returns to demo mode.
func (c *Controller) ClearCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = ""
	c.mode = brain.ModeDemo
}

// EnableLive switches back to live mode after DisableLive.
func (c *Controller) EnableLive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credential == "" {
		return ErrCredentialRequired
	}
	c.mode = brain.ModeLive
	return nil
}

// DisableLive keeps the credential but answers from demo rules.
func (c *Controller) DisableLive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = brain.ModeDemo
}

func (c *Controller) Mode() brain.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Controller) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential != ""
}

// Transcript returns a snapshot of the conversation log.
func (c *Controller) Transcript() []transcript.Turn {
	return c.log.Turns()
}

// Reset clears the conversation and any completer history. It waits for an
// in-flight turn so the cleared log never receives half a turn.
func (c *Controller) Reset() {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	c.log.Clear()
	c.gen.ResetHistory()
}

func (c *Controller) Status() Status {
	c.mu.RLock()
	mode, tag, hasCred := c.mode, c.persona, c.credential != ""
	c.mu.RUnlock()
	return Status{
		Mode:          mode,
		Persona:       tag,
		HasCredential: hasCred,
		Turns:         c.log.Len(),
		Summary:       c.log.Summary(),
	}
}

// Credential-free formatting so a Controller can never leak its key via %v.
func (c *Controller) String() string {
	s := c.Status()
	return fmt.Sprintf("assistant{mode=%s persona=%s credential=%t turns=%d}", s.Mode, s.Persona, s.HasCredential, s.Turns)
}
