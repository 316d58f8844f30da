package replay

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/clock"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/cycle"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

// #region result-types

// StepResult captures the outcome of replaying one step.
type StepResult struct {
	Index    int
	VSP      float64
	Mode     perturb.Mode
	Phase    cycle.Phase
	Expected string // expected mode name, "" when unasserted
	Match    bool   // false only when an expectation exists and failed
}

// Summary aggregates a replay run.
type Summary struct {
	Steps       int
	Transitions int
	Mismatches  int
	FinalMode   perturb.Mode
	FinalPhase  cycle.Phase
	FinalTrend  float64
	CycleCount  uint64
}

// RunResult bundles per-step results with the run summary.
type RunResult struct {
	Results []StepResult
	Summary Summary
}

// #endregion result-types

// #region harness

// Run replays a fixture against a fresh engine and scheduler on a manual
// clock, so the same fixture always produces the same trace.
func Run(fixture *Fixture) (*RunResult, error) {
	clk := clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	engine, err := perturb.NewEngine(clk, fixture.ToEngineConfig())
	if err != nil {
		return nil, fmt.Errorf("replay engine: %w", err)
	}
	scheduler, err := cycle.NewScheduler(fixture.ToCycleConfig(), clk.Now())
	if err != nil {
		return nil, fmt.Errorf("replay scheduler: %w", err)
	}

	out := &RunResult{Results: make([]StepResult, 0, len(fixture.Steps))}
	previousMode := engine.Mode()

	for i, step := range fixture.Steps {
		clk.Advance(time.Duration(step.ElapsedMS) * time.Millisecond)

		vsp, err := stepValue(engine, step)
		if err != nil {
			return nil, fmt.Errorf("replay step %d: %w", i, err)
		}

		mode := engine.ModeFor(vsp)
		phase := scheduler.Advance(mode, clk.Now())

		result := StepResult{
			Index:    i,
			VSP:      vsp,
			Mode:     mode,
			Phase:    phase,
			Expected: step.ExpectMode,
			Match:    true,
		}
		if step.ExpectMode != "" && step.ExpectMode != mode.String() {
			result.Match = false
			out.Summary.Mismatches++
		}
		if mode != previousMode {
			out.Summary.Transitions++
			previousMode = mode
		}
		out.Results = append(out.Results, result)
	}

	out.Summary.Steps = len(fixture.Steps)
	out.Summary.FinalMode = engine.Mode()
	out.Summary.FinalPhase = scheduler.Phase()
	out.Summary.FinalTrend = engine.Trend()
	out.Summary.CycleCount = scheduler.CycleCount()
	return out, nil
}

// stepValue resolves a step to its perturbation value: precomputed when the
// fixture carries one, otherwise computed from the recorded vectors.
func stepValue(engine *perturb.Engine, step FixtureStep) (float64, error) {
	if step.VSP != nil {
		return *step.VSP, nil
	}
	if len(step.Observation) == 0 {
		return 0, fmt.Errorf("step carries neither vsp nor observation")
	}
	return engine.Compute(step.Observation, perturb.ComputeOptions{
		Reference: step.Reference,
		Emotion:   step.Emotion,
	})
}

// #endregion harness
