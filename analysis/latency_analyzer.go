// Package analysis collects delivery statistics from a running simulation.
package analysis

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/synclab/netsim/sim"
)

// A LatencyAnalyzer is an engine hook that records the delivery latency of
// every delivered event together with delivery, drop, and duplicate counts.
type LatencyAnalyzer struct {
	mu sync.Mutex

	latencies  []float64
	delivered  uint64
	dropped    uint64
	duplicates uint64
}

// NewLatencyAnalyzer creates a LatencyAnalyzer. Attach it to an engine with
// AcceptHook.
func NewLatencyAnalyzer() *LatencyAnalyzer {
	return &LatencyAnalyzer{}
}

// Func records one delivery or drop notification.
func (a *LatencyAnalyzer) Func(ctx sim.HookCtx) {
	evt, ok := ctx.Item.(*sim.NetworkEvent)
	if !ok {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	switch ctx.Pos {
	case sim.HookPosEventDelivered:
		a.delivered++
		if evt.Duplicate {
			a.duplicates++
			return
		}
		a.latencies = append(a.latencies, float64(ctx.Now-evt.CreatedAt))
	case sim.HookPosEventDropped:
		a.dropped++
	}
}

// LatencySnapshot is a point-in-time summary of delivery behavior. Latency
// fields are zero when nothing has been delivered yet.
type LatencySnapshot struct {
	Delivered  uint64 `json:"delivered"`
	Dropped    uint64 `json:"dropped"`
	Duplicates uint64 `json:"duplicates"`

	MeanMs float64 `json:"mean_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Snapshot summarizes everything recorded so far.
func (a *LatencyAnalyzer) Snapshot() LatencySnapshot {
	a.mu.Lock()
	latencies := make([]float64, len(a.latencies))
	copy(latencies, a.latencies)
	snap := LatencySnapshot{
		Delivered:  a.delivered,
		Dropped:    a.dropped,
		Duplicates: a.duplicates,
	}
	a.mu.Unlock()

	if len(latencies) == 0 {
		return snap
	}

	sort.Float64s(latencies)

	snap.MeanMs = stat.Mean(latencies, nil)
	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.P50Ms = stat.Quantile(0.50, stat.Empirical, latencies, nil)
	snap.P95Ms = stat.Quantile(0.95, stat.Empirical, latencies, nil)
	snap.P99Ms = stat.Quantile(0.99, stat.Empirical, latencies, nil)

	return snap
}

// Reset discards all recorded statistics.
func (a *LatencyAnalyzer) Reset() {
	a.mu.Lock()
	a.latencies = nil
	a.delivered = 0
	a.dropped = 0
	a.duplicates = 0
	a.mu.Unlock()
}
