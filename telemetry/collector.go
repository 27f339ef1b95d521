package telemetry

// Totals is a snapshot of the schedulers' cumulative counters. The
// collector diffs consecutive snapshots to produce per-window counts.
type Totals struct {
	ThinksQueued    uint64
	ThinksProcessed uint64
	ThinksDuplicate uint64

	DecisionsEvaluated uint64
	DecisionsNoChoice  uint64

	ActionsCompleted uint64
	ActionsFailed    uint64
	ActionsCancelled uint64
	OrphanMarkers    uint64

	PathsQueued    uint64
	PathsComputed  uint64
	PathsFailed    uint64
	PathsPromoted  uint64
	PathsDuplicate uint64
	NegCacheHits   uint64
}

// QueueDepths holds the instantaneous queue sizes sampled at flush.
type QueueDepths struct {
	ThinkUrgent, ThinkNormal, ThinkLow int
	PathUrgent, PathNormal, PathLow    int
}

// Collector accumulates scheduler activity within tick windows and
// produces WindowStats.
type Collector struct {
	windowTicks     uint64
	windowStartTick uint64

	prev  Totals
	waits []float64
}

// NewCollector creates a stats collector flushing every windowTicks.
func NewCollector(windowTicks uint64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordWaits adds path wait-time samples for the current window.
func (c *Collector) RecordWaits(samples []float64) {
	c.waits = append(c.waits, samples...)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces a WindowStats from the delta against the previous
// snapshot and resets for the next window.
func (c *Collector) Flush(currentTick uint64, population int, totals Totals, depths QueueDepths) WindowStats {
	computed := int(totals.PathsComputed - c.prev.PathsComputed)
	failed := int(totals.PathsFailed - c.prev.PathsFailed)
	evaluated := int(totals.DecisionsEvaluated - c.prev.DecisionsEvaluated)
	noChoice := int(totals.DecisionsNoChoice - c.prev.DecisionsNoChoice)

	var failRate, noChoiceRate float64
	if computed > 0 {
		failRate = float64(failed) / float64(computed)
	}
	if evaluated > 0 {
		noChoiceRate = float64(noChoice) / float64(evaluated)
	}

	waitMean, waitP50, waitP90, waitMax := ComputeWaitStats(c.waits)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		Population:      population,

		ThinksQueued:    int(totals.ThinksQueued - c.prev.ThinksQueued),
		ThinksProcessed: int(totals.ThinksProcessed - c.prev.ThinksProcessed),
		ThinksDuplicate: int(totals.ThinksDuplicate - c.prev.ThinksDuplicate),

		ThinkUrgent: depths.ThinkUrgent,
		ThinkNormal: depths.ThinkNormal,
		ThinkLow:    depths.ThinkLow,

		DecisionsEvaluated: evaluated,
		DecisionsNoChoice:  noChoice,
		NoChoiceRate:       noChoiceRate,

		ActionsCompleted: int(totals.ActionsCompleted - c.prev.ActionsCompleted),
		ActionsFailed:    int(totals.ActionsFailed - c.prev.ActionsFailed),
		ActionsCancelled: int(totals.ActionsCancelled - c.prev.ActionsCancelled),
		OrphanMarkers:    int(totals.OrphanMarkers - c.prev.OrphanMarkers),

		PathsQueued:    int(totals.PathsQueued - c.prev.PathsQueued),
		PathsComputed:  computed,
		PathsFailed:    failed,
		PathsPromoted:  int(totals.PathsPromoted - c.prev.PathsPromoted),
		PathsDuplicate: int(totals.PathsDuplicate - c.prev.PathsDuplicate),
		NegCacheHits:   int(totals.NegCacheHits - c.prev.NegCacheHits),
		PathFailRate:   failRate,

		PathUrgent: depths.PathUrgent,
		PathNormal: depths.PathNormal,
		PathLow:    depths.PathLow,

		WaitMean: waitMean,
		WaitP50:  waitP50,
		WaitP90:  waitP90,
		WaitMax:  waitMax,
	}

	c.windowStartTick = currentTick
	c.prev = totals
	c.waits = c.waits[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() uint64 {
	return c.windowTicks
}
