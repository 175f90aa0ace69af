package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/aria/internal/config"
	"github.com/antoniostano/aria/internal/observability"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/protocol"
	"github.com/antoniostano/aria/internal/session"
	"github.com/antoniostano/aria/internal/speech"
)

// Options carries the optional collaborators of the web shell.
type Options struct {
	Metrics *observability.Metrics
	// Synthesizer enables server-side audio. Without it the browser speaks
	// replies with its own speech synthesis.
	Synthesizer   speech.Synthesizer
	SpeechBackend string
	Phrases       *speech.PhraseSource
	Logger        *slog.Logger
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	metrics  *observability.Metrics
	synth    speech.Synthesizer
	backend  string
	phrases  *speech.PhraseSource
	logger   *slog.Logger
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, sessions *session.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	phrases := opts.Phrases
	if phrases == nil {
		phrases = speech.NewPhraseSource()
	}
	backend := strings.TrimSpace(opts.SpeechBackend)
	if backend == "" {
		backend = "browser"
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		metrics:  opts.Metrics,
		synth:    opts.Synthesizer,
		backend:  backend,
		phrases:  phrases,
		logger:   logger,
		static:   newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive a session unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/personas", s.handleListPersonas)
	r.Post("/v1/speech/preview", s.handlePreviewSpeech)
	r.Get("/v1/onboarding/status", s.handleOnboardingStatus)
	r.Get("/v1/ui/settings", s.handleUISettings)
	r.Get("/v1/perf/replies", s.handlePerfReplies)

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions/ws", s.handleSessionWS)
	r.Route("/v1/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleSessionStatus)
		r.Delete("/", s.handleEndSession)
		r.Post("/turns", s.handleTurn)
		r.Get("/transcript", s.handleTranscript)
		r.Put("/persona", s.handleSetPersona)
		r.Put("/credential", s.handleSetCredential)
		r.Delete("/credential", s.handleClearCredential)
		r.Post("/live", s.handleLive)
		r.Post("/reset", s.handleReset)
		r.Get("/listen", s.handleListen)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
		"speech_backend":  s.backend,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tag := s.cfg.DefaultPersona
	if raw := strings.TrimSpace(req.Persona); raw != "" {
		parsed, err := persona.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_persona", err.Error())
			return
		}
		tag = parsed
	}

	sess, ctrl, err := s.sessions.Create(tag)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_create_failed", err.Error())
		return
	}
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.ObserveSessionEvent("created")

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		Status:          sess.Status,
		Persona:         ctrl.Persona(),
		Mode:            ctrl.Mode(),
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.sessions.InactivityTimeout().Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.SetActiveSessions(s.sessions.ActiveCount())
	s.metrics.ObserveSessionEvent("ended")
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	ctrl, err := s.sessions.Assistant(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ObserveSessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readTimeout, pingInterval, writeTimeout := wsReadTimeout, wsPingInterval, wsWriteTimeout
	outbound := make(chan any, 64)
	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					cancel()
					return
				}
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.ObserveWSMessage("outbound", string(t))
				}
			}
		}
	}()

	// Turns run one at a time off the read loop so controls such as
	// set_persona are handled while a live call is in flight.
	turns := make(chan string, 8)
	turnsDone := make(chan struct{})
	go func() {
		defer close(turnsDone)
		for text := range turns {
			for _, msg := range s.runTurn(ctx, sessionID, ctrl, text) {
				send(msg)
			}
		}
	}()

	send(protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: sessionID,
		Code:      "session_ready",
		Detail:    string(ctrl.Mode()),
	})
	send(protocol.TranscriptSnapshot{
		Type:      protocol.TypeTranscriptSnapshot,
		SessionID: sessionID,
		Turns:     ctrl.Transcript(),
	})

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		// An ended or expired session closes its socket.
		return s.sessions.Touch(sessionID)
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		if err := s.sessions.Touch(sessionID); err != nil {
			break
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}

		switch m := parsed.(type) {
		case protocol.ClientTextInput:
			select {
			case <-ctx.Done():
				break readLoop
			case turns <- m.Text:
			}
		case protocol.ClientControl:
			for _, msg := range s.applyControl(ctx, sessionID, ctrl, m) {
				send(msg)
			}
		}
	}

	close(turns)
	cancel()
	<-turnsDone
	<-writerDone
	s.metrics.ObserveSessionEvent("ws_disconnected")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

// Pings go out well inside the read timeout; browsers answer them without
// any client code, which keeps an idle chat tab connected.
var (
	wsReadTimeout  = 120 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientTextInput:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.AssistantAudio:
		return m.Type, true
	case protocol.TranscriptSnapshot:
		return m.Type, true
	case protocol.ListenResult:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
