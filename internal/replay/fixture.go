package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/cycle"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description  string               `json:"description"`
	EngineConfig *FixtureEngineConfig `json:"engine_config"`
	CycleConfig  *FixtureCycleConfig  `json:"cycle_config"`
	Steps        []FixtureStep        `json:"steps"`
}

// FixtureEngineConfig mirrors perturb.Config with JSON tags.
type FixtureEngineConfig struct {
	Thresholds FixtureThresholds `json:"thresholds"`
	Hysteresis FixtureHysteresis `json:"hysteresis"`
	Lensing    FixtureLensing    `json:"lensing"`
}

// FixtureThresholds mirrors perturb.Thresholds with JSON tags.
type FixtureThresholds struct {
	IdleToFlow   float64 `json:"idle_to_flow"`
	FlowToIdle   float64 `json:"flow_to_idle"`
	FlowToDeep   float64 `json:"flow_to_deep"`
	DeepToFlow   float64 `json:"deep_to_flow"`
	DeepToCrisis float64 `json:"deep_to_crisis"`
	CrisisToDeep float64 `json:"crisis_to_deep"`
}

// FixtureHysteresis mirrors perturb.HysteresisConfig with JSON tags.
type FixtureHysteresis struct {
	DebounceMS    int64   `json:"debounce_ms"`
	TrendDecay    float64 `json:"trend_decay"`
	RollingWindow int     `json:"rolling_window"`
}

// FixtureLensing mirrors perturb.LensingConfig with JSON tags.
type FixtureLensing struct {
	EmotionWeight  float64 `json:"emotion_weight"`
	CausalWeight   float64 `json:"causal_weight"`
	TemporalWeight float64 `json:"temporal_weight"`
}

// FixtureCycleConfig mirrors cycle.Config with JSON tags.
type FixtureCycleConfig struct {
	BasePeriodMS     int64   `json:"base_period_ms"`
	IdleMultiplier   float64 `json:"idle_multiplier"`
	FlowMultiplier   float64 `json:"flow_multiplier"`
	DeepMultiplier   float64 `json:"deep_multiplier"`
	CrisisMultiplier float64 `json:"crisis_multiplier"`
}

// FixtureStep is a single recorded step. Either a precomputed vsp value or
// an observation (with optional reference and lensing inputs) must be
// present. ExpectMode is optional; empty means no expectation.
type FixtureStep struct {
	ElapsedMS   int64     `json:"elapsed_ms"`
	VSP         *float64  `json:"vsp,omitempty"`
	Observation []float64 `json:"observation,omitempty"`
	Reference   []float64 `json:"reference,omitempty"`
	Emotion     []float64 `json:"emotion,omitempty"`
	ExpectMode  string    `json:"expect_mode,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("fixture %s: no steps", path)
	}
	return &f, nil
}

// ToEngineConfig converts the fixture engine config to a domain config,
// falling back to defaults when the section is absent.
func (f *Fixture) ToEngineConfig() perturb.Config {
	if f.EngineConfig == nil {
		return perturb.DefaultConfig()
	}
	c := f.EngineConfig
	return perturb.Config{
		Thresholds: perturb.Thresholds{
			IdleToFlow:   c.Thresholds.IdleToFlow,
			FlowToIdle:   c.Thresholds.FlowToIdle,
			FlowToDeep:   c.Thresholds.FlowToDeep,
			DeepToFlow:   c.Thresholds.DeepToFlow,
			DeepToCrisis: c.Thresholds.DeepToCrisis,
			CrisisToDeep: c.Thresholds.CrisisToDeep,
		},
		Hysteresis: perturb.HysteresisConfig{
			Debounce:      time.Duration(c.Hysteresis.DebounceMS) * time.Millisecond,
			TrendDecay:    c.Hysteresis.TrendDecay,
			RollingWindow: c.Hysteresis.RollingWindow,
		},
		Lensing: perturb.LensingConfig{
			EmotionWeight:  c.Lensing.EmotionWeight,
			CausalWeight:   c.Lensing.CausalWeight,
			TemporalWeight: c.Lensing.TemporalWeight,
		},
	}
}

// ToCycleConfig converts the fixture cycle config to a domain config,
// falling back to defaults when the section is absent.
func (f *Fixture) ToCycleConfig() cycle.Config {
	if f.CycleConfig == nil {
		return cycle.DefaultConfig()
	}
	c := f.CycleConfig
	return cycle.Config{
		BasePeriod:       time.Duration(c.BasePeriodMS) * time.Millisecond,
		IdleMultiplier:   c.IdleMultiplier,
		FlowMultiplier:   c.FlowMultiplier,
		DeepMultiplier:   c.DeepMultiplier,
		CrisisMultiplier: c.CrisisMultiplier,
	}
}

// #endregion fixture-loader
