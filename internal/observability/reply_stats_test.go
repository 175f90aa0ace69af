package observability

import (
	"testing"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/reliability"
)

func TestReplyStatsSnapshot(t *testing.T) {
	r := newReplyStats(8)
	r.addReply(brain.ModeLive, 500)
	r.addReply(brain.ModeLive, 9000)
	r.addReply(brain.ModeLive, 700)
	r.addReply(brain.ModeDemo, 1)
	r.addFallback(reliability.KindNetwork)
	r.addFallback(reliability.KindNetwork)
	r.addFallback(reliability.KindAuth)

	snap := r.snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Modes) != 2 || snap.Modes[0].Mode != brain.ModeDemo || snap.Modes[1].Mode != brain.ModeLive {
		t.Fatalf("Modes = %+v, want demo then live", snap.Modes)
	}
	live := snap.Modes[1]
	if live.Samples != 3 || live.LastMS != 700 || live.P50MS != 700 || live.P95MS != 9000 {
		t.Fatalf("live stats = %+v", live)
	}
	if live.BudgetMS != 8000 || live.OverBudget != 1 {
		t.Fatalf("live budget = %.0f over = %d, want 8000 and 1", live.BudgetMS, live.OverBudget)
	}
	want := []FallbackCount{{Kind: reliability.KindAuth, Count: 1}, {Kind: reliability.KindNetwork, Count: 2}}
	if len(snap.Fallbacks) != len(want) || snap.Fallbacks[0] != want[0] || snap.Fallbacks[1] != want[1] {
		t.Fatalf("Fallbacks = %+v, want %+v", snap.Fallbacks, want)
	}
}

func TestReplyStatsKeepsNewest(t *testing.T) {
	r := newReplyStats(2)
	for _, v := range []float64{10, 20, 30} {
		r.addReply(brain.ModeDemo, v)
	}
	s := r.snapshot().Modes[0]
	if s.Samples != 2 || s.AvgMS != 25 || s.LastMS != 30 {
		t.Fatalf("stats = %+v, want 2 samples avg 25 last 30", s)
	}
}

func TestReplyStatsIgnoresInvalid(t *testing.T) {
	r := newReplyStats(4)
	r.addReply(brain.Mode("unknown"), 10)
	r.addReply(brain.ModeDemo, -1)
	snap := r.snapshot()
	if len(snap.Modes) != 0 || len(snap.Fallbacks) != 0 || snap.EmptyInputs != 0 {
		t.Fatalf("snapshot = %+v, want empty", snap)
	}
}

func TestNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 5},
		{95, 10},
		{100, 10},
	}
	for _, tc := range cases {
		if got := nearestRank(sorted, tc.p); got != tc.want {
			t.Fatalf("nearestRank(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
}
