package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/antoniostano/aria/internal/policy"
	"github.com/antoniostano/aria/internal/reliability"
)

// Mode selects where replies come from.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// ErrMalformedResponse is returned by completers when the upstream answered
// but the payload carried no usable reply.
var ErrMalformedResponse = errors.New("malformed completion response")

// Completer is the chat-completion collaborator used in live mode.
type Completer interface {
	Complete(ctx context.Context, prompt, credential string) (string, error)
}

// HistoryResetter is implemented by completers that keep conversation state.
type HistoryResetter interface {
	ResetHistory()
}

// Request is one reply generation call.
type Request struct {
	Text       string
	Mode       Mode
	Credential string
}

// Result carries the reply and the mode that actually produced it. Failure is
// set when a live call failed and the reply fell back to demo rules.
type Result struct {
	Text    string
	Mode    Mode
	Failure *LiveFailure
}

// LiveFailure describes a failed live call. Detail is already redacted.
type LiveFailure struct {
	Kind   reliability.Kind
	Detail string
	Err    error
}

func (f *LiveFailure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("live generation failed (%s)", f.Kind)
	}
	return fmt.Sprintf("live generation failed (%s): %s", f.Kind, f.Detail)
}

func (f *LiveFailure) Unwrap() error { return f.Err }

// Retryable reports whether trying again later may help.
func (f *LiveFailure) Retryable() bool { return f.Kind.Retryable() }

// Config tunes a Generator.
type Config struct {
	// LiveTimeout bounds a single live call. Zero leaves the deadline to the caller.
	LiveTimeout time.Duration
	Logger      *slog.Logger
}

// Generator dispatches between the demo rules and the live completer.
type Generator struct {
	completer   Completer
	liveTimeout time.Duration
	logger      *slog.Logger
}

func NewGenerator(completer Completer, cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		completer:   completer,
		liveTimeout: cfg.LiveTimeout,
		logger:      logger,
	}
}

// Generate never fails: live errors degrade to the demo reply and are
// reported through Result.Failure.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	credential := strings.TrimSpace(req.Credential)
	if req.Mode != ModeLive || credential == "" || g.completer == nil {
		return Result{Text: DemoReply(req.Text), Mode: ModeDemo}
	}

	text, err := g.live(ctx, req.Text, credential)
	if err == nil {
		return Result{Text: text, Mode: ModeLive}
	}

	failure := classify(err, credential)
	g.logger.WarnContext(ctx, "live reply failed, using demo rules",
		slog.String("kind", string(failure.Kind)),
		slog.String("detail", failure.Detail),
	)
	return Result{Text: DemoReply(req.Text), Mode: ModeDemo, Failure: failure}
}

// ResetHistory forwards to the completer when it keeps conversation state.
func (g *Generator) ResetHistory() {
	if r, ok := g.completer.(HistoryResetter); ok {
		r.ResetHistory()
	}
}

func (g *Generator) live(ctx context.Context, text, credential string) (string, error) {
	ctx, span := otel.Tracer("aria/brain").Start(ctx, "brain.live_completion")
	defer span.End()
	span.SetAttributes(attribute.Int("prompt.chars", len(text)))

	if g.liveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.liveTimeout)
		defer cancel()
	}

	reply, err := g.completer.Complete(ctx, strings.TrimSpace(text), credential)
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			err = ErrMalformedResponse
		}
	}
	if err != nil {
		span.RecordError(errors.New(policy.Redact(err.Error(), credential)))
		span.SetStatus(codes.Error, "live completion failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("reply.chars", len(reply)))
	return reply, nil
}

func classify(err error, credential string) *LiveFailure {
	var existing *LiveFailure
	if errors.As(err, &existing) {
		return existing
	}
	detail := policy.Redact(err.Error(), credential)

	var statusErr interface{ StatusCode() int }
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return &LiveFailure{Kind: reliability.KindMalformed, Detail: detail, Err: err}
	case errors.As(err, &statusErr) && statusErr.StatusCode() > 0:
		return &LiveFailure{Kind: reliability.ClassifyHTTPStatus(statusErr.StatusCode()), Detail: detail, Err: err}
	default:
		return &LiveFailure{Kind: reliability.ClassifyTransportError(err), Detail: detail, Err: err}
	}
}

// StatusError is a completer error that carries the upstream HTTP status.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) StatusCode() int { return e.Code }
