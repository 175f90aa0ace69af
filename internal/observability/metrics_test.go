package observability

import (
	"testing"
	"time"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/reliability"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTurn(brain.ModeDemo, time.Millisecond)
	m.ObserveLiveFailure(&brain.LiveFailure{Kind: reliability.KindNetwork})
	m.ObserveEmptyInput()
	m.ObserveSpeechError("console")
	m.ObserveSessionEvent("created")
	m.SetActiveSessions(3)
	m.ObserveWSMessage("in", "client_text_input")
	if snap := m.ReplyStats(); len(snap.Modes) != 0 {
		t.Fatalf("ReplyStats() = %+v, want empty", snap)
	}
}

func TestMetricsFeedReplyStats(t *testing.T) {
	m := NewMetrics("aria_metrics_test")
	m.ObserveTurn(brain.ModeLive, 1500*time.Millisecond)
	m.ObserveTurn(brain.ModeDemo, 2*time.Millisecond)
	m.ObserveLiveFailure(&brain.LiveFailure{Kind: reliability.KindAuth})
	m.ObserveEmptyInput()

	snap := m.ReplyStats()
	if len(snap.Modes) != 2 {
		t.Fatalf("len(Modes) = %d, want 2", len(snap.Modes))
	}
	if snap.Modes[1].Mode != "live" || snap.Modes[1].LastMS != 1500 {
		t.Fatalf("live stats = %+v", snap.Modes[1])
	}
	if len(snap.Fallbacks) != 1 || snap.Fallbacks[0].Kind != reliability.KindAuth || snap.Fallbacks[0].Count != 1 {
		t.Fatalf("Fallbacks = %+v", snap.Fallbacks)
	}
	if snap.EmptyInputs != 1 {
		t.Fatalf("EmptyInputs = %d, want 1", snap.EmptyInputs)
	}
}
