package game

import (
	"log/slog"

	"github.com/pthm-cable/meadow/telemetry"
)

// flushTelemetry harvests wait samples every tick and, at window
// boundaries, flushes a stats row built from the schedulers'
// cumulative counters.
func (s *Sim) flushTelemetry() {
	s.collector.RecordWaits(s.paths.TakeWaitSamples())
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.population, s.sampleTotals(), s.sampleDepths())
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats, perfStats)
	}
	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}
	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, s.tick); err != nil {
		slog.Error("failed to write perf stats", "error", err)
	}
}

// sampleTotals snapshots every scheduler counter for window diffing.
func (s *Sim) sampleTotals() telemetry.Totals {
	return telemetry.Totals{
		ThinksQueued:    s.think.TotalQueued(),
		ThinksProcessed: s.think.TotalProcessed(),
		ThinksDuplicate: s.think.TotalDuplicate(),

		DecisionsEvaluated: s.planner.TotalEvaluated(),
		DecisionsNoChoice:  s.planner.TotalNoChoice(),

		ActionsCompleted: s.executor.TotalCompleted(),
		ActionsFailed:    s.executor.TotalFailed(),
		ActionsCancelled: s.executor.TotalCancelled(),
		OrphanMarkers:    s.executor.TotalOrphans(),

		PathsQueued:    s.paths.TotalQueued(),
		PathsComputed:  s.paths.TotalComputed(),
		PathsFailed:    s.paths.TotalFailed(),
		PathsPromoted:  s.paths.TotalPromoted(),
		PathsDuplicate: s.paths.TotalDuplicate(),
		NegCacheHits:   s.paths.NegCacheHits(),
	}
}

// sampleDepths snapshots the instantaneous queue sizes.
func (s *Sim) sampleDepths() telemetry.QueueDepths {
	tu, tn, tl := s.think.QueueSizes()
	pu, pn, pl := s.paths.QueueSizes()
	return telemetry.QueueDepths{
		ThinkUrgent: tu, ThinkNormal: tn, ThinkLow: tl,
		PathUrgent: pu, PathNormal: pn, PathLow: pl,
	}
}
