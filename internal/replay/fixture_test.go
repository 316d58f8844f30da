package replay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

func TestLoadFixtureFromDisk(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "mode_ladder.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description == "" {
		t.Fatal("expected non-empty description")
	}
	if len(f.Steps) != 9 {
		t.Fatalf("expected 9 steps, got %d", len(f.Steps))
	}

	cfg := f.ToEngineConfig()
	if cfg.Hysteresis.Debounce != 0 {
		t.Fatalf("expected debounce disabled, got %v", cfg.Hysteresis.Debounce)
	}
	if cfg.Thresholds.DeepToCrisis != 0.8 {
		t.Fatalf("threshold not parsed: %v", cfg.Thresholds.DeepToCrisis)
	}

	cc := f.ToCycleConfig()
	if cc.BasePeriod != time.Second || cc.CrisisMultiplier != 0.2 {
		t.Fatalf("cycle config not parsed: %+v", cc)
	}
}

func TestLoadFixtureErrors(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDiskFixtureReplaysClean(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "mode_ladder.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	result, err := Run(f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Mismatches != 0 {
		for _, r := range result.Results {
			if !r.Match {
				t.Errorf("step %d: got %v expected %s (vsp=%v)", r.Index, r.Mode, r.Expected, r.VSP)
			}
		}
		t.Fatalf("%d mismatches in committed fixture", result.Summary.Mismatches)
	}
	if result.Summary.FinalMode != perturb.ModeIdle {
		t.Fatalf("ladder should end back at Idle, got %v", result.Summary.FinalMode)
	}
}

func TestDefaultsWhenConfigSectionsAbsent(t *testing.T) {
	f := &Fixture{Steps: []FixtureStep{{ElapsedMS: 1, VSP: vsp(0.5)}}}

	cfg := f.ToEngineConfig()
	if cfg.Hysteresis.RollingWindow != perturb.DefaultHysteresisConfig().RollingWindow {
		t.Fatal("absent engine config must fall back to defaults")
	}
	cc := f.ToCycleConfig()
	if cc.IdleMultiplier != 2.0 {
		t.Fatal("absent cycle config must fall back to defaults")
	}
}
