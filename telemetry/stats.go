package telemetry

import (
	"log/slog"
	"math"
	"sort"
)

// WindowStats holds aggregated scheduler statistics for a tick window.
type WindowStats struct {
	WindowStartTick uint64 `csv:"-"`
	WindowEndTick   uint64 `csv:"window_end"`

	// Population at window end
	Population int `csv:"population"`

	// Think scheduler activity during the window
	ThinksQueued    int `csv:"thinks_queued"`
	ThinksProcessed int `csv:"thinks_processed"`
	ThinksDuplicate int `csv:"thinks_duplicate"`

	// Think queue depths at window end
	ThinkUrgent int `csv:"think_urgent"`
	ThinkNormal int `csv:"think_normal"`
	ThinkLow    int `csv:"think_low"`

	// Decision activity
	DecisionsEvaluated int     `csv:"decisions_evaluated"`
	DecisionsNoChoice  int     `csv:"decisions_no_choice"`
	NoChoiceRate       float64 `csv:"no_choice_rate"`

	// Action lifecycle
	ActionsCompleted int `csv:"actions_completed"`
	ActionsFailed    int `csv:"actions_failed"`
	ActionsCancelled int `csv:"actions_cancelled"`
	OrphanMarkers    int `csv:"orphan_markers"`

	// Path scheduler activity
	PathsQueued    int     `csv:"paths_queued"`
	PathsComputed  int     `csv:"paths_computed"`
	PathsFailed    int     `csv:"paths_failed"`
	PathsPromoted  int     `csv:"paths_promoted"`
	PathsDuplicate int     `csv:"paths_duplicate"`
	NegCacheHits   int     `csv:"neg_cache_hits"`
	PathFailRate   float64 `csv:"path_fail_rate"`

	// Path queue depths at window end
	PathUrgent int `csv:"path_urgent"`
	PathNormal int `csv:"path_normal"`
	PathLow    int `csv:"path_low"`

	// Path wait time in ticks, sampled at delivery
	WaitMean float64 `csv:"wait_mean"`
	WaitP50  float64 `csv:"wait_p50"`
	WaitP90  float64 `csv:"wait_p90"`
	WaitMax  float64 `csv:"wait_max"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeWaitStats calculates mean, percentiles and max from wait-time
// samples.
func ComputeWaitStats(values []float64) (mean, p50, p90, max float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
		if v > max {
			max = v
		}
	}
	mean = sum / float64(n)
	if math.IsNaN(mean) {
		mean = 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p50, p90, max
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"population", s.Population,
		"thinks_queued", s.ThinksQueued,
		"thinks_processed", s.ThinksProcessed,
		"thinks_duplicate", s.ThinksDuplicate,
		"think_queues", []int{s.ThinkUrgent, s.ThinkNormal, s.ThinkLow},
		"decisions_evaluated", s.DecisionsEvaluated,
		"decisions_no_choice", s.DecisionsNoChoice,
		"actions_completed", s.ActionsCompleted,
		"actions_failed", s.ActionsFailed,
		"actions_cancelled", s.ActionsCancelled,
		"orphan_markers", s.OrphanMarkers,
		"paths_queued", s.PathsQueued,
		"paths_computed", s.PathsComputed,
		"paths_failed", s.PathsFailed,
		"paths_promoted", s.PathsPromoted,
		"neg_cache_hits", s.NegCacheHits,
		"path_queues", []int{s.PathUrgent, s.PathNormal, s.PathLow},
		"wait_p50", s.WaitP50,
		"wait_p90", s.WaitP90,
		"wait_max", s.WaitMax,
	)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartTick),
		slog.Uint64("window_end", s.WindowEndTick),
		slog.Int("population", s.Population),
		slog.Int("thinks_queued", s.ThinksQueued),
		slog.Int("thinks_processed", s.ThinksProcessed),
		slog.Int("thinks_duplicate", s.ThinksDuplicate),
		slog.Int("decisions_evaluated", s.DecisionsEvaluated),
		slog.Int("decisions_no_choice", s.DecisionsNoChoice),
		slog.Int("actions_completed", s.ActionsCompleted),
		slog.Int("actions_failed", s.ActionsFailed),
		slog.Int("actions_cancelled", s.ActionsCancelled),
		slog.Int("orphan_markers", s.OrphanMarkers),
		slog.Int("paths_queued", s.PathsQueued),
		slog.Int("paths_computed", s.PathsComputed),
		slog.Int("paths_failed", s.PathsFailed),
		slog.Int("paths_promoted", s.PathsPromoted),
		slog.Int("neg_cache_hits", s.NegCacheHits),
		slog.Float64("wait_mean", s.WaitMean),
		slog.Float64("wait_p50", s.WaitP50),
		slog.Float64("wait_p90", s.WaitP90),
		slog.Float64("wait_max", s.WaitMax),
	)
}
