package cycle

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

// #region phase
// Phase enumerates the Reflect → Abstract → Act rotation.
type Phase int

const (
	PhaseReflect Phase = iota
	PhaseAbstract
	PhaseAct
)

// String returns the serialized phase name.
func (p Phase) String() string {
	switch p {
	case PhaseReflect:
		return "reflect"
	case PhaseAbstract:
		return "abstract"
	case PhaseAct:
		return "act"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// next returns the following phase in cycle order.
func (p Phase) next() Phase {
	switch p {
	case PhaseReflect:
		return PhaseAbstract
	case PhaseAbstract:
		return PhaseAct
	default:
		return PhaseReflect
	}
}

// #endregion phase

// #region config
// Config holds the base period and per-mode pacing multipliers. Lower
// multipliers cycle faster under load.
type Config struct {
	BasePeriod       time.Duration
	IdleMultiplier   float64
	FlowMultiplier   float64
	DeepMultiplier   float64
	CrisisMultiplier float64
}

// DefaultConfig returns the standard pacing.
func DefaultConfig() Config {
	return Config{
		BasePeriod:       time.Second,
		IdleMultiplier:   2.0,
		FlowMultiplier:   1.0,
		DeepMultiplier:   0.5,
		CrisisMultiplier: 0.2,
	}
}

// Validate checks that the period and all multipliers are positive.
func (c Config) Validate() error {
	if c.BasePeriod <= 0 {
		return fmt.Errorf("cycle base_period: %v must be > 0", c.BasePeriod)
	}
	multipliers := map[string]float64{
		"idle":   c.IdleMultiplier,
		"flow":   c.FlowMultiplier,
		"deep":   c.DeepMultiplier,
		"crisis": c.CrisisMultiplier,
	}
	for name, m := range multipliers {
		if m <= 0 {
			return fmt.Errorf("cycle %s multiplier: %v must be > 0", name, m)
		}
	}
	return nil
}

// multiplierFor maps a mode to its pacing multiplier.
func (c Config) multiplierFor(mode perturb.Mode) float64 {
	switch mode {
	case perturb.ModeIdle:
		return c.IdleMultiplier
	case perturb.ModeFlow:
		return c.FlowMultiplier
	case perturb.ModeDeep:
		return c.DeepMultiplier
	case perturb.ModeCrisis:
		return c.CrisisMultiplier
	}
	return c.FlowMultiplier
}

// #endregion config

// #region scheduler
// Scheduler advances the three-phase rhythm at a pace scaled by the
// current mode. Timestamps are passed in by the caller, so pacing is
// deterministic under test.
type Scheduler struct {
	config     Config
	phase      Phase
	lastChange time.Time
	count      uint64
}

// NewScheduler creates a scheduler in Reflect phase, anchored at start.
func NewScheduler(config Config, start time.Time) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("cycle config: %w", err)
	}
	return &Scheduler{
		config:     config,
		phase:      PhaseReflect,
		lastChange: start,
	}, nil
}

// Advance moves to the next phase when the mode-scaled period has elapsed
// since the last change, and returns the (possibly unchanged) phase.
func (s *Scheduler) Advance(mode perturb.Mode, now time.Time) Phase {
	period := s.periodFor(mode)
	if now.Sub(s.lastChange) >= period {
		s.phase = s.phase.next()
		s.lastChange = now
		s.count++
	}
	return s.phase
}

// periodFor returns the cycle period for a mode.
func (s *Scheduler) periodFor(mode perturb.Mode) time.Duration {
	return time.Duration(float64(s.config.BasePeriod) * s.config.multiplierFor(mode))
}

// Progress reports the fraction of the phase period elapsed since the last
// change, in [0, 1]. The reference period is always the Flow period
// regardless of the actual mode; inherited behaviour, kept as-is.
func (s *Scheduler) Progress(now time.Time) float64 {
	period := s.periodFor(perturb.ModeFlow)
	elapsed := now.Sub(s.lastChange)
	if elapsed <= 0 {
		return 0
	}
	progress := float64(elapsed) / float64(period)
	if progress > 1 {
		return 1
	}
	return progress
}

// Phase returns the current phase without advancing.
func (s *Scheduler) Phase() Phase {
	return s.phase
}

// CycleCount returns the monotonic phase-advance counter.
func (s *Scheduler) CycleCount() uint64 {
	return s.count
}

// Signature renders the rhythm signature recorded into packet momentum.
func (s *Scheduler) Signature() string {
	return fmt.Sprintf("%s:%d", s.phase, s.count)
}

// Reset returns to Reflect, zeroes the counter, and re-anchors the phase
// timestamp at now.
func (s *Scheduler) Reset(now time.Time) {
	s.phase = PhaseReflect
	s.lastChange = now
	s.count = 0
}

// #endregion scheduler

// #region stats
// Stats is a point-in-time snapshot of scheduler state.
type Stats struct {
	Phase           Phase
	CycleCount      uint64
	Progress        float64
	LastPhaseChange time.Time
}

// Stats returns a snapshot of scheduler state as of now.
func (s *Scheduler) Stats(now time.Time) Stats {
	return Stats{
		Phase:           s.phase,
		CycleCount:      s.count,
		Progress:        s.Progress(now),
		LastPhaseChange: s.lastChange,
	}
}

// #endregion stats
