package telemetry

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeWaitStats(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	mean, p50, p90, max := ComputeWaitStats(values)

	if math.Abs(mean-5.5) > 0.001 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	if math.Abs(p50-5.5) > 0.01 {
		t.Errorf("p50 = %v, want ~5.5", p50)
	}
	if math.Abs(p90-9.1) > 0.01 {
		t.Errorf("p90 = %v, want ~9.1", p90)
	}
	if max != 10 {
		t.Errorf("max = %v, want 10", max)
	}
}

func TestComputeWaitStatsEmpty(t *testing.T) {
	mean, p50, p90, max := ComputeWaitStats([]float64{})

	if mean != 0 || p50 != 0 || p90 != 0 || max != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestCollectorWindowDeltas(t *testing.T) {
	c := NewCollector(100)

	if c.ShouldFlush(50) {
		t.Error("flush requested before window elapsed")
	}
	if !c.ShouldFlush(100) {
		t.Error("no flush requested at window end")
	}

	first := Totals{
		ThinksQueued:    40,
		ThinksProcessed: 30,
		PathsComputed:   20,
		PathsFailed:     5,
	}
	c.RecordWaits([]float64{2, 4, 6})
	stats := c.Flush(100, 500, first, QueueDepths{ThinkUrgent: 3})

	if stats.ThinksQueued != 40 || stats.ThinksProcessed != 30 {
		t.Errorf("first window thinks = %d/%d, want 40/30", stats.ThinksQueued, stats.ThinksProcessed)
	}
	if stats.PathFailRate != 0.25 {
		t.Errorf("fail rate = %v, want 0.25", stats.PathFailRate)
	}
	if stats.ThinkUrgent != 3 {
		t.Errorf("urgent depth = %d, want 3", stats.ThinkUrgent)
	}
	if stats.WaitMax != 6 {
		t.Errorf("wait max = %v, want 6", stats.WaitMax)
	}

	// The second window must report only the delta, and the wait
	// samples must have been reset.
	second := first
	second.ThinksQueued = 55
	second.PathsComputed = 26
	stats = c.Flush(200, 500, second, QueueDepths{})

	if stats.ThinksQueued != 15 {
		t.Errorf("second window thinks_queued = %d, want 15", stats.ThinksQueued)
	}
	if stats.PathsComputed != 6 {
		t.Errorf("second window paths_computed = %d, want 6", stats.PathsComputed)
	}
	if stats.WaitMax != 0 {
		t.Errorf("wait samples leaked across windows: max = %v", stats.WaitMax)
	}
	if stats.WindowStartTick != 100 {
		t.Errorf("window start = %d, want 100", stats.WindowStartTick)
	}
}
