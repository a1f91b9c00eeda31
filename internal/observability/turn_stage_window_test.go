package observability

import (
	"testing"
	"time"
)

func TestTurnStageWindowSnapshot(t *testing.T) {
	w := newTurnStageWindow(8)
	w.Observe(StageTTS, 500)
	w.Observe(StageTTS, 700)
	w.Observe(StageTTS, 900)
	w.ObserveIndicator("outcome_success")
	w.ObserveIndicator("outcome_success")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != StageTTS || s.Samples != 3 {
		t.Fatalf("stage = %+v", s)
	}
	if s.LastMS != 900 || s.P50MS != 700 {
		t.Fatalf("LastMS = %.2f P50MS = %.2f, want 900 and 700", s.LastMS, s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 8000 {
		t.Fatalf("TargetP95MS = %.2f, want 8000", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %+v", snap.Indicators)
	}
}

func TestTurnStageWindowWrapsAround(t *testing.T) {
	w := newTurnStageWindow(2)
	w.Observe(StageSTT, 10)
	w.Observe(StageSTT, 20)
	w.Observe(StageSTT, 30)

	s := w.Snapshot().Stages[0]
	if s.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", s.Samples)
	}
	if s.AvgMS != 25 {
		t.Fatalf("AvgMS = %.2f, want 25 once the oldest sample is evicted", s.AvgMS)
	}
}

func TestMetricsObserveStageFeedsWindow(t *testing.T) {
	m := NewMetrics("test_observability_" + time.Now().Format("150405") + "_" + time.Now().Format("000000000"))
	m.ObserveStage(StageLLM, 250*time.Millisecond)
	m.ObserveTurnOutcome("success")
	m.ObserveProviderAttempt("llm", "groq", "ok", 200*time.Millisecond)

	snap := m.SnapshotTurnStages()
	if len(snap.Stages) != 1 || snap.Stages[0].Stage != StageLLM {
		t.Fatalf("Stages = %+v", snap.Stages)
	}
	if snap.Stages[0].LastMS != 250 {
		t.Fatalf("LastMS = %.2f, want 250", snap.Stages[0].LastMS)
	}
}
