package perturb

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/clock"
)

// noReferenceValue is returned when neither the caller nor the engine has a
// reference basis: unknown territory is assumed to be moderate-high mismatch.
const noReferenceValue = 0.8

// #region engine
// Engine computes perturbation values from observation vectors and drives
// the debounced, hysteresis-protected mode machine.
type Engine struct {
	config Config
	clk    clock.Clock

	mode       Mode
	lastChange time.Time
	trend      *TrendEstimator
	reference  []float64
}

// NewEngine creates an engine in Idle mode. The clock is injected so
// debounce behaviour is deterministic under test.
func NewEngine(clk clock.Clock, config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{
		config:     config,
		clk:        clk,
		mode:       ModeIdle,
		lastChange: clk.Now(),
		trend:      NewTrendEstimator(config.Hysteresis.TrendDecay, config.Hysteresis.RollingWindow),
	}, nil
}

// #endregion engine

// #region reference
// SetReference replaces the stored reference basis. History and mode are
// left untouched.
func (e *Engine) SetReference(vec []float64) {
	e.reference = append([]float64(nil), vec...)
}

// #endregion reference

// #region compute-options
// ComputeOptions carries the optional inputs to Compute. The zero value
// means "observation only".
type ComputeOptions struct {
	Reference []float64          // overrides the engine's stored reference
	Emotion   []float64          // valence at [0], arousal at [1]
	Causal    map[string]float64 // causal context weights
	Temporal  *float64           // temporal context factor
}

// #endregion compute-options

// #region compute
// Compute scores how much observation deviates from the reference basis,
// returning a perturbation value in [0, 1]. With no reference available it
// returns the fixed sentinel without touching history. Observation and
// reference lengths must agree.
func (e *Engine) Compute(observation []float64, opts ComputeOptions) (float64, error) {
	if len(observation) == 0 {
		return 0, nil
	}

	reference := opts.Reference
	if reference == nil {
		reference = e.reference
	}
	if reference == nil {
		return noReferenceValue, nil
	}
	if len(reference) != len(observation) {
		return 0, &DimensionError{Observation: len(observation), Reference: len(reference)}
	}

	obs := normalize(observation)
	ref := normalize(reference)

	// Negative cosine similarity is clamped: opposed vectors read as
	// maximal dissonance, not beyond it.
	phaseSimilarity := math.Max(0, floats.Dot(obs, ref))

	lensing := e.lensingModifier(opts)
	vsp := clamp01((1 - phaseSimilarity) * (1 + e.config.Lensing.EmotionWeight*math.Abs(lensing)))

	e.trend.Observe(vsp)
	return vsp, nil
}

// #endregion compute

// #region lensing
// lensingModifier sums the emotional, causal, and temporal terms. The
// emotion weight also amplifies the final perturbation formula; the
// coupling is inherited behaviour, not an accident to clean up.
func (e *Engine) lensingModifier(opts ComputeOptions) float64 {
	var modifier float64

	if len(opts.Emotion) >= 2 {
		valence := opts.Emotion[0]
		arousal := opts.Emotion[1]
		modifier += e.config.Lensing.EmotionWeight * (valence + arousal) / 2
	}

	if len(opts.Causal) > 0 {
		var sum float64
		for _, w := range opts.Causal {
			sum += w
		}
		modifier += e.config.Lensing.CausalWeight * (sum / float64(len(opts.Causal)))
	}

	if opts.Temporal != nil {
		modifier += e.config.Lensing.TemporalWeight * *opts.Temporal
	}

	return modifier
}

// #endregion lensing

// #region mode-machine
// ModeFor evaluates the mode machine against vsp. Inside the debounce
// window the current mode is returned with no transition evaluation. A
// transition is accepted only one rung at a time, except for the Crisis
// entry/exit special cases.
func (e *Engine) ModeFor(vsp float64) Mode {
	now := e.clk.Now()
	if now.Sub(e.lastChange) < e.config.Hysteresis.Debounce {
		return e.mode
	}

	target := e.targetMode(vsp)
	if target != e.mode && e.shouldTransition(vsp, target) {
		e.mode = target
		e.lastChange = now
	}
	return e.mode
}

// targetMode maps a perturbation value to the mode it calls for, evaluated
// high to low.
func (e *Engine) targetMode(vsp float64) Mode {
	t := e.config.Thresholds
	switch {
	case vsp >= t.DeepToCrisis:
		return ModeCrisis
	case vsp >= t.FlowToDeep:
		return ModeDeep
	case vsp >= t.IdleToFlow:
		return ModeFlow
	default:
		return ModeIdle
	}
}

// shouldTransition applies the hysteresis gate to a proposed transition.
func (e *Engine) shouldTransition(vsp float64, target Mode) bool {
	t := e.config.Thresholds

	// Crisis holds until perturbation drops enough; entering Crisis skips
	// the one-rung rule.
	if e.mode == ModeCrisis {
		return vsp <= t.CrisisToDeep
	}
	if target == ModeCrisis {
		return vsp >= t.DeepToCrisis
	}

	switch {
	case e.mode == ModeIdle && target == ModeFlow:
		return vsp >= t.IdleToFlow
	case e.mode == ModeFlow && target == ModeIdle:
		return vsp <= t.FlowToIdle
	case e.mode == ModeFlow && target == ModeDeep:
		return vsp >= t.FlowToDeep
	case e.mode == ModeDeep && target == ModeFlow:
		return vsp <= t.DeepToFlow
	}

	return false
}

// #endregion mode-machine

// #region accessors
// Mode returns the current mode without evaluating a transition.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Trend returns the exponentially-weighted rolling average of the
// perturbation history.
func (e *Engine) Trend() float64 {
	return e.trend.Average()
}

// Stats returns a snapshot of engine state.
func (e *Engine) Stats() Stats {
	return Stats{
		Mode:            e.mode,
		CurrentValue:    e.trend.Last(),
		Trend:           e.trend.Average(),
		HistoryLen:      e.trend.Len(),
		SinceModeChange: e.clk.Now().Sub(e.lastChange),
	}
}

// Reset returns the engine to Idle, clears the history, and drops the
// reference basis.
func (e *Engine) Reset() {
	e.mode = ModeIdle
	e.lastChange = e.clk.Now()
	e.trend.Reset()
	e.reference = nil
}

// #endregion accessors

// #region helpers
// normalize returns a unit-length copy of v. A zero vector is returned
// unchanged to avoid dividing by zero.
func normalize(v []float64) []float64 {
	out := append([]float64(nil), v...)
	norm := floats.Norm(out, 2)
	if norm == 0 {
		return out
	}
	floats.Scale(1/norm, out)
	return out
}

// clamp01 restricts v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
