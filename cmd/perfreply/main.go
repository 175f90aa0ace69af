// Command perfreply replays text turns against a running ARIA server over
// the session websocket and reports reply latency per mode.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/aria/internal/protocol"
)

type options struct {
	baseURL        string
	persona        string
	turns          int
	live           bool
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type createSessionRequest struct {
	Persona string `json:"persona,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

type wsEnvelope struct {
	Type     string `json:"type"`
	TurnID   string `json:"turn_id,omitempty"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Text     string `json:"text,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

type turnResult struct {
	Text     string
	Mode     string
	Fallback string
	Latency  time.Duration
}

type summary struct {
	Mode    string
	Samples int
	P50     time.Duration
	P95     time.Duration
	Max     time.Duration
}

var defaultUtterances = []string{
	"Hello there",
	"What can you do?",
	"Tell me about the weather",
	"Thank you",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfreply: %v\n", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	results, err := run(ctx, cfg, os.Getenv("OPENAI_API_KEY"), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfreply: %v\n", err)
		os.Exit(1)
	}
	for _, s := range summarize(results) {
		fmt.Printf("perfreply: mode=%s samples=%d p50=%s p95=%s max=%s\n", s.Mode, s.Samples, s.P50, s.P95, s.Max)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var startDelayMS, interTurnMS, turnTimeoutMS int

	fs := flag.NewFlagSet("perfreply", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "ARIA base URL")
	fs.StringVar(&cfg.persona, "persona", "", "persona for the synthetic session (male, female, alien)")
	fs.IntVar(&cfg.turns, "turns", 10, "number of turns to replay")
	fs.BoolVar(&cfg.live, "live", false, "send OPENAI_API_KEY to the session and measure live replies")
	fs.IntVar(&startDelayMS, "start-delay-ms", 200, "delay before the first turn in milliseconds")
	fs.IntVar(&interTurnMS, "inter-turn-ms", 100, "delay between turns in milliseconds")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 35000, "timeout waiting for assistant_reply per turn in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "utterances separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	cfg.startDelay = time.Duration(max(startDelayMS, 0)) * time.Millisecond
	cfg.interTurnDelay = time.Duration(max(interTurnMS, 0)) * time.Millisecond
	cfg.turnTimeout = time.Duration(max(turnTimeoutMS, 1000)) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultUtterances...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty utterances")
		}
	}
	return cfg, nil
}

// run replays cfg.turns turns and returns one result per turn. credential is
// only sent when cfg.live is set and is never printed.
func run(ctx context.Context, cfg options, credential string, progress io.Writer) ([]turnResult, error) {
	if !cfg.verbose || progress == nil {
		progress = io.Discard
	}
	httpClient := &http.Client{Timeout: 45 * time.Second}
	sessionID, err := createSession(ctx, httpClient, cfg)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = endSession(context.Background(), httpClient, cfg.baseURL, sessionID)
	}()
	fmt.Fprintf(progress, "perfreply: session=%s turns=%d live=%v\n", sessionID, cfg.turns, cfg.live)

	wsURL, err := wsURLForSession(cfg.baseURL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	replies := make(chan wsEnvelope, 32)
	readErrCh := make(chan error, 1)
	go readLoop(conn, replies, readErrCh, progress)

	if cfg.live {
		if strings.TrimSpace(credential) == "" {
			return nil, fmt.Errorf("-live requires OPENAI_API_KEY")
		}
		if err := conn.WriteJSON(protocol.ClientControl{
			Type:       protocol.TypeClientControl,
			SessionID:  sessionID,
			Action:     protocol.ActionSetCredential,
			Credential: credential,
		}); err != nil {
			return nil, fmt.Errorf("send credential: %w", err)
		}
	}

	if cfg.startDelay > 0 {
		time.Sleep(cfg.startDelay)
	}

	results := make([]turnResult, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		started := time.Now()
		if err := conn.WriteJSON(protocol.ClientTextInput{
			Type:      protocol.TypeClientTextInput,
			SessionID: sessionID,
			Text:      text,
		}); err != nil {
			return results, fmt.Errorf("turn %d send: %w", i+1, err)
		}
		reply, err := awaitReply(ctx, replies, readErrCh, cfg.turnTimeout)
		if err != nil {
			return results, fmt.Errorf("turn %d await assistant_reply: %w", i+1, err)
		}
		res := turnResult{Text: text, Mode: reply.Mode, Fallback: reply.Fallback, Latency: time.Since(started)}
		results = append(results, res)
		fmt.Fprintf(progress, "perfreply: turn %d/%d mode=%s latency=%s text=%q\n", i+1, cfg.turns, res.Mode, res.Latency.Round(time.Millisecond), text)

		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}
	fmt.Fprintln(progress, "perfreply: replay completed")
	return results, nil
}

func createSession(ctx context.Context, client *http.Client, cfg options) (string, error) {
	payload, err := json.Marshal(createSessionRequest{Persona: strings.TrimSpace(cfg.persona)})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out createSessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return out.SessionID, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, baseURL+"/v1/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/sessions/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, replies chan<- wsEnvelope, readErrCh chan<- error, progress io.Writer) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case string(protocol.TypeAssistantReply):
			replies <- env
		case string(protocol.TypeErrorEvent):
			fmt.Fprintf(progress, "perfreply: error_event code=%s detail=%s\n", env.Code, env.Detail)
		}
	}
}

func awaitReply(ctx context.Context, replies <-chan wsEnvelope, readErrCh <-chan error, timeout time.Duration) (wsEnvelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env := <-replies:
		return env, nil
	case err := <-readErrCh:
		return wsEnvelope{}, err
	case <-ctx.Done():
		return wsEnvelope{}, ctx.Err()
	case <-timer.C:
		return wsEnvelope{}, fmt.Errorf("timeout after %s", timeout)
	}
}

// summarize groups latencies by the mode that actually answered.
func summarize(results []turnResult) []summary {
	byMode := make(map[string][]time.Duration)
	for _, r := range results {
		byMode[r.Mode] = append(byMode[r.Mode], r.Latency)
	}
	modes := make([]string, 0, len(byMode))
	for m := range byMode {
		modes = append(modes, m)
	}
	sort.Strings(modes)

	out := make([]summary, 0, len(modes))
	for _, m := range modes {
		lat := byMode[m]
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		out = append(out, summary{
			Mode:    m,
			Samples: len(lat),
			P50:     percentile(lat, 0.50),
			P95:     percentile(lat, 0.95),
			Max:     lat[len(lat)-1],
		})
	}
	return out
}

// percentile uses nearest-rank on a sorted slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	idx = min(max(idx, 0), len(sorted)-1)
	return sorted[idx]
}
