package cycle

import (
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(DefaultConfig(), start)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func TestAdvanceCyclesThroughPhases(t *testing.T) {
	s := newTestScheduler(t)

	if s.Phase() != PhaseReflect {
		t.Fatalf("expected Reflect initially, got %v", s.Phase())
	}

	// Flow period is the base period (1s).
	now := start
	want := []Phase{PhaseAbstract, PhaseAct, PhaseReflect, PhaseAbstract}
	for i, expected := range want {
		now = now.Add(time.Second)
		if got := s.Advance(perturb.ModeFlow, now); got != expected {
			t.Fatalf("advance %d: got %v want %v", i, got, expected)
		}
	}
	if s.CycleCount() != 4 {
		t.Fatalf("expected 4 advances counted, got %d", s.CycleCount())
	}
}

func TestAdvanceHoldsWithinPeriod(t *testing.T) {
	s := newTestScheduler(t)

	if got := s.Advance(perturb.ModeFlow, start.Add(500*time.Millisecond)); got != PhaseReflect {
		t.Fatalf("expected Reflect to hold inside period, got %v", got)
	}
	if s.CycleCount() != 0 {
		t.Fatalf("counter must not move without a phase change, got %d", s.CycleCount())
	}
}

func TestAdvancePaceScalesWithMode(t *testing.T) {
	s := newTestScheduler(t)

	// Crisis multiplier 0.2: 200ms period at 1s base.
	if got := s.Advance(perturb.ModeCrisis, start.Add(250*time.Millisecond)); got != PhaseAbstract {
		t.Fatalf("expected Crisis pacing to advance at 250ms, got %v", got)
	}

	// Idle multiplier 2.0: 2s period; 1s after the last change is too soon.
	if got := s.Advance(perturb.ModeIdle, start.Add(1250*time.Millisecond)); got != PhaseAbstract {
		t.Fatalf("expected Idle pacing to hold after 1s, got %v", got)
	}
	if got := s.Advance(perturb.ModeIdle, start.Add(2250*time.Millisecond)); got != PhaseAct {
		t.Fatalf("expected Idle pacing to advance after 2s, got %v", got)
	}
}

func TestProgressUsesFlowPeriod(t *testing.T) {
	s := newTestScheduler(t)

	if got := s.Progress(start); got != 0 {
		t.Fatalf("expected 0 progress at anchor, got %v", got)
	}
	got := s.Progress(start.Add(500 * time.Millisecond))
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 progress at half the flow period, got %v", got)
	}
	if got := s.Progress(start.Add(5 * time.Second)); got != 1 {
		t.Fatalf("expected progress capped at 1, got %v", got)
	}
}

func TestSignatureAndReset(t *testing.T) {
	s := newTestScheduler(t)

	if got := s.Signature(); got != "reflect:0" {
		t.Fatalf("expected reflect:0, got %q", got)
	}
	s.Advance(perturb.ModeFlow, start.Add(time.Second))
	if got := s.Signature(); got != "abstract:1" {
		t.Fatalf("expected abstract:1, got %q", got)
	}

	s.Reset(start.Add(10 * time.Second))
	if s.Phase() != PhaseReflect || s.CycleCount() != 0 {
		t.Fatalf("reset did not restore initial state: %v %d", s.Phase(), s.CycleCount())
	}
	stats := s.Stats(start.Add(10 * time.Second))
	if stats.Progress != 0 {
		t.Fatalf("expected zero progress after reset, got %v", stats.Progress)
	}
	if !stats.LastPhaseChange.Equal(start.Add(10 * time.Second)) {
		t.Fatalf("reset did not re-anchor timestamp: %v", stats.LastPhaseChange)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := DefaultConfig()
	bad.BasePeriod = 0
	if _, err := NewScheduler(bad, start); err == nil {
		t.Fatal("expected error for zero base period")
	}

	bad = DefaultConfig()
	bad.DeepMultiplier = -1
	if _, err := NewScheduler(bad, start); err == nil {
		t.Fatal("expected error for negative multiplier")
	}
}
