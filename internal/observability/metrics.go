package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/antoniostano/aria/internal/brain"
)

// Metrics groups all Prometheus instruments used by the assistant. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	LiveFailures   *prometheus.CounterVec
	EmptyInputs    prometheus.Counter
	SpeechErrors   *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	ReplyLatency   *prometheus.HistogramVec

	replies *replyStats
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active assistant sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by the mode that produced the reply.",
		}, []string{"mode"}),
		LiveFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_failures_total",
			Help:      "Live generation failures that fell back to demo replies, by kind.",
		}, []string{"kind"}),
		EmptyInputs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_inputs_total",
			Help:      "Turns rejected because the input was empty.",
		}),
		SpeechErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_errors_total",
			Help:      "Speech output errors by backend.",
		}, []string{"backend"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ReplyLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_ms",
			Help:      "Time from accepted input to reply in milliseconds.",
			Buckets:   []float64{1, 5, 25, 100, 250, 500, 1000, 2000, 5000, 10000},
		}, []string{"mode"}),
		replies: newReplyStats(256),
	}
}

func (m *Metrics) ObserveTurn(mode brain.Mode, latency time.Duration) {
	if m == nil {
		return
	}
	ms := float64(latency.Microseconds()) / 1000
	m.Turns.WithLabelValues(string(mode)).Inc()
	m.ReplyLatency.WithLabelValues(string(mode)).Observe(ms)
	m.replies.addReply(mode, ms)
}

func (m *Metrics) ObserveLiveFailure(f *brain.LiveFailure) {
	if m == nil || f == nil {
		return
	}
	m.LiveFailures.WithLabelValues(string(f.Kind)).Inc()
	m.replies.addFallback(f.Kind)
}

func (m *Metrics) ObserveEmptyInput() {
	if m == nil {
		return
	}
	m.EmptyInputs.Inc()
	m.replies.addEmptyInput()
}

func (m *Metrics) ObserveSpeechError(backend string) {
	if m == nil {
		return
	}
	m.SpeechErrors.WithLabelValues(backend).Inc()
}

func (m *Metrics) ObserveSessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// ReplyStats summarizes recent reply latencies per mode and the fallbacks
// taken since start.
func (m *Metrics) ReplyStats() ReplySnapshot {
	if m == nil {
		return ReplySnapshot{GeneratedAt: time.Now().UTC(), Modes: []ModeLatency{}}
	}
	return m.replies.snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
