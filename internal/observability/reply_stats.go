package observability

import (
	"math"
	"slices"
	"sync"
	"time"

	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/reliability"
)

// replyBudgetMS is the latency a reply of each mode is expected to stay under.
var replyBudgetMS = map[brain.Mode]float64{
	brain.ModeDemo: 50,
	brain.ModeLive: 8000,
}

// ModeLatency summarizes the recent replies produced by one mode.
type ModeLatency struct {
	Mode       brain.Mode `json:"mode"`
	Samples    int        `json:"samples"`
	LastMS     float64    `json:"last_ms"`
	AvgMS      float64    `json:"avg_ms"`
	P50MS      float64    `json:"p50_ms"`
	P95MS      float64    `json:"p95_ms"`
	BudgetMS   float64    `json:"budget_ms"`
	OverBudget int        `json:"over_budget"`
}

type FallbackCount struct {
	Kind  reliability.Kind `json:"kind"`
	Count int              `json:"count"`
}

// ReplySnapshot is served on /v1/perf/replies.
type ReplySnapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	WindowSize  int             `json:"window_size"`
	Modes       []ModeLatency   `json:"modes"`
	Fallbacks   []FallbackCount `json:"fallbacks,omitempty"`
	EmptyInputs int             `json:"empty_inputs"`
}

// replyStats keeps the latest latencies of each reply mode, oldest first,
// plus running fallback and empty-input counts.
type replyStats struct {
	mu          sync.Mutex
	size        int
	latencies   map[brain.Mode][]float64
	fallbacks   map[reliability.Kind]int
	emptyInputs int
}

func newReplyStats(size int) *replyStats {
	if size <= 0 {
		size = 256
	}
	return &replyStats{
		size:      size,
		latencies: make(map[brain.Mode][]float64),
		fallbacks: make(map[reliability.Kind]int),
	}
}

func (r *replyStats) addReply(mode brain.Mode, ms float64) {
	if _, known := replyBudgetMS[mode]; !known || ms < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l := append(r.latencies[mode], ms)
	if len(l) > r.size {
		copy(l, l[len(l)-r.size:])
		l = l[:r.size]
	}
	r.latencies[mode] = l
}

func (r *replyStats) addFallback(kind reliability.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks[kind]++
}

func (r *replyStats) addEmptyInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emptyInputs++
}

func (r *replyStats) snapshot() ReplySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := ReplySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  r.size,
		Modes:       []ModeLatency{},
		EmptyInputs: r.emptyInputs,
	}
	for _, mode := range []brain.Mode{brain.ModeDemo, brain.ModeLive} {
		if l := r.latencies[mode]; len(l) > 0 {
			snap.Modes = append(snap.Modes, summarizeMode(mode, l))
		}
	}
	for _, kind := range []reliability.Kind{reliability.KindAuth, reliability.KindRateLimit, reliability.KindNetwork, reliability.KindMalformed} {
		if n := r.fallbacks[kind]; n > 0 {
			snap.Fallbacks = append(snap.Fallbacks, FallbackCount{Kind: kind, Count: n})
		}
	}
	return snap
}

func summarizeMode(mode brain.Mode, latencies []float64) ModeLatency {
	budget := replyBudgetMS[mode]
	sorted := append([]float64(nil), latencies...)
	slices.Sort(sorted)

	sum, over := 0.0, 0
	for _, v := range sorted {
		sum += v
		if v > budget {
			over++
		}
	}
	return ModeLatency{
		Mode:       mode,
		Samples:    len(sorted),
		LastMS:     round2(latencies[len(latencies)-1]),
		AvgMS:      round2(sum / float64(len(sorted))),
		P50MS:      round2(nearestRank(sorted, 50)),
		P95MS:      round2(nearestRank(sorted, 95)),
		BudgetMS:   budget,
		OverBudget: over,
	}
}

// nearestRank returns the p-th percentile of an ascending slice.
func nearestRank(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[max(rank, 1)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
