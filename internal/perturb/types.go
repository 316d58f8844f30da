package perturb

import (
	"fmt"
	"time"
)

// #region mode
// Mode enumerates the four cognitive modes, ordered by depth.
type Mode int

const (
	ModeIdle Mode = iota
	ModeFlow
	ModeDeep
	ModeCrisis
)

// String returns the serialized mode name.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeFlow:
		return "flow"
	case ModeDeep:
		return "deep"
	case ModeCrisis:
		return "crisis"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is one of the four defined modes.
func (m Mode) Valid() bool {
	return m >= ModeIdle && m <= ModeCrisis
}

// ParseMode converts a serialized mode name back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "idle":
		return ModeIdle, nil
	case "flow":
		return ModeFlow, nil
	case "deep":
		return ModeDeep, nil
	case "crisis":
		return ModeCrisis, nil
	}
	return ModeIdle, fmt.Errorf("parse mode: unknown mode %q", s)
}

// #endregion mode

// #region thresholds
// Thresholds holds the six mode-transition cut points. The pairs are
// deliberately asymmetric to implement hysteresis.
type Thresholds struct {
	IdleToFlow   float64
	FlowToIdle   float64
	FlowToDeep   float64
	DeepToFlow   float64
	DeepToCrisis float64
	CrisisToDeep float64
}

// DefaultThresholds returns the standard transition cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IdleToFlow:   0.3,
		FlowToIdle:   0.2,
		FlowToDeep:   0.6,
		DeepToFlow:   0.5,
		DeepToCrisis: 0.8,
		CrisisToDeep: 0.7,
	}
}

// Validate checks that every cut point lies in [0, 1].
func (t Thresholds) Validate() error {
	points := map[string]float64{
		"idle_to_flow":   t.IdleToFlow,
		"flow_to_idle":   t.FlowToIdle,
		"flow_to_deep":   t.FlowToDeep,
		"deep_to_flow":   t.DeepToFlow,
		"deep_to_crisis": t.DeepToCrisis,
		"crisis_to_deep": t.CrisisToDeep,
	}
	for name, v := range points {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s: %v out of range [0,1]", name, v)
		}
	}
	return nil
}

// #endregion thresholds

// #region hysteresis-config
// HysteresisConfig guards against mode oscillation.
type HysteresisConfig struct {
	Debounce      time.Duration // minimum dwell time before a new transition is evaluated
	TrendDecay    float64       // exponential decay for the trend average, in [0,1]
	RollingWindow int           // perturbation history cap
}

// DefaultHysteresisConfig returns the standard anti-flap settings.
func DefaultHysteresisConfig() HysteresisConfig {
	return HysteresisConfig{
		Debounce:      time.Second,
		TrendDecay:    0.95,
		RollingWindow: 10,
	}
}

// Validate checks decay range and window size.
func (h HysteresisConfig) Validate() error {
	if h.Debounce < 0 {
		return fmt.Errorf("hysteresis debounce: negative duration %v", h.Debounce)
	}
	if h.TrendDecay < 0 || h.TrendDecay > 1 {
		return fmt.Errorf("hysteresis trend_decay: %v out of range [0,1]", h.TrendDecay)
	}
	if h.RollingWindow < 1 {
		return fmt.Errorf("hysteresis rolling_window: %d must be >= 1", h.RollingWindow)
	}
	return nil
}

// #endregion hysteresis-config

// #region lensing-config
// LensingConfig weights the emotional, causal, and temporal modifiers
// applied on top of raw phase dissonance.
type LensingConfig struct {
	EmotionWeight  float64
	CausalWeight   float64
	TemporalWeight float64
}

// DefaultLensingConfig returns the standard lensing weights.
func DefaultLensingConfig() LensingConfig {
	return LensingConfig{
		EmotionWeight:  0.3,
		CausalWeight:   0.2,
		TemporalWeight: 0.1,
	}
}

// Validate checks that all weights are non-negative.
func (l LensingConfig) Validate() error {
	if l.EmotionWeight < 0 {
		return fmt.Errorf("lensing emotion_weight: %v must be >= 0", l.EmotionWeight)
	}
	if l.CausalWeight < 0 {
		return fmt.Errorf("lensing causal_weight: %v must be >= 0", l.CausalWeight)
	}
	if l.TemporalWeight < 0 {
		return fmt.Errorf("lensing temporal_weight: %v must be >= 0", l.TemporalWeight)
	}
	return nil
}

// #endregion lensing-config

// #region engine-config
// Config bundles the three engine sub-configs.
type Config struct {
	Thresholds Thresholds
	Hysteresis HysteresisConfig
	Lensing    LensingConfig
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: DefaultThresholds(),
		Hysteresis: DefaultHysteresisConfig(),
		Lensing:    DefaultLensingConfig(),
	}
}

// Validate checks all sub-configs.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Hysteresis.Validate(); err != nil {
		return err
	}
	return c.Lensing.Validate()
}

// #endregion engine-config

// #region dimension-error
// DimensionError reports a length mismatch between an observation and the
// reference it is compared against.
type DimensionError struct {
	Observation int
	Reference   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: observation has %d components, reference has %d",
		e.Observation, e.Reference)
}

// #endregion dimension-error

// #region stats
// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Mode            Mode
	CurrentValue    float64
	Trend           float64
	HistoryLen      int
	SinceModeChange time.Duration
}

// #endregion stats
