package perturb

import (
	"math"
	"testing"
)

func TestTrendEmptyHistory(t *testing.T) {
	est := NewTrendEstimator(0.95, 10)
	if got := est.Average(); got != 0 {
		t.Fatalf("expected 0 for empty history, got %v", got)
	}
	if est.Last() != 0 {
		t.Fatal("expected Last() of 0 for empty history")
	}
}

func TestTrendSingleValue(t *testing.T) {
	est := NewTrendEstimator(0.95, 10)
	est.Observe(0.6)
	if got := est.Average(); math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("single-value average should equal the value, got %v", got)
	}
}

func TestTrendWeighting(t *testing.T) {
	// Newest weighted 1, older weighted by decay: (0.9 + 0.5*0.1) / 1.5.
	est := NewTrendEstimator(0.5, 10)
	est.Observe(0.1)
	est.Observe(0.9)

	want := (0.9 + 0.5*0.1) / 1.5
	if got := est.Average(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("weighted average: got %v want %v", got, want)
	}
}

func TestTrendWindowEviction(t *testing.T) {
	est := NewTrendEstimator(0.95, 3)
	for _, v := range []float64{0.1, 0.2, 0.3, 0.4} {
		est.Observe(v)
	}
	if est.Len() != 3 {
		t.Fatalf("expected window cap of 3, got %d", est.Len())
	}
	if est.Last() != 0.4 {
		t.Fatalf("expected newest value retained, got %v", est.Last())
	}

	// Oldest entry 0.1 must be gone: all remaining values exceed it.
	if est.Average() <= 0.2 {
		t.Fatalf("average %v suggests evicted value still present", est.Average())
	}
}

func TestTrendReset(t *testing.T) {
	est := NewTrendEstimator(0.95, 10)
	est.Observe(0.7)
	est.Reset()
	if est.Len() != 0 || est.Average() != 0 {
		t.Fatal("reset did not clear history")
	}
}
