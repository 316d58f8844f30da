package packet

import (
	"fmt"
	"time"
)

// Fixed dimensions carried over from the packet format. The drift direction
// is pinned at 512 components and the emotional state at 8; both are
// validated on every mutation and load.
const (
	DriftDimensions     = 512
	EmotionalDimensions = 8
)

// DefaultWorkingMemoryCapacity bounds the working-memory list; lower-weight
// items are evicted past this point.
const DefaultWorkingMemoryCapacity = 50

// DefaultTrendDecay is the EMA decay for the packet's own perturbation trend.
const DefaultTrendDecay = 0.95

// #region item-type
// ItemType tags a working-memory item.
type ItemType string

const (
	ItemQualiaRef   ItemType = "qualia_ref"
	ItemDraftSchema ItemType = "draft_schema"
	ItemContext     ItemType = "context"
)

// Valid reports whether t is one of the three defined tags.
func (t ItemType) Valid() bool {
	switch t {
	case ItemQualiaRef, ItemDraftSchema, ItemContext:
		return true
	}
	return false
}

// #endregion item-type

// #region weight-vector
// WeightVector scores a working-memory item on three axes, each in [0, 1].
type WeightVector struct {
	Recency      float64
	Perturbation float64
	Connectivity float64
}

// TotalWeight folds the three components into a single priority score.
func (w WeightVector) TotalWeight() float64 {
	return 0.4*w.Recency + 0.4*w.Perturbation + 0.2*w.Connectivity
}

// Validate checks that every component lies in [0, 1].
func (w WeightVector) Validate() error {
	components := map[string]float64{
		"recency":      w.Recency,
		"perturbation": w.Perturbation,
		"connectivity": w.Connectivity,
	}
	for name, v := range components {
		if v < 0 || v > 1 {
			return &ValidationError{
				Field:  "weight." + name,
				Reason: fmt.Sprintf("%v out of range [0,1]", v),
			}
		}
	}
	return nil
}

// #endregion weight-vector

// #region working-memory-item
// WorkingMemoryItem is a single retained state item. A zero ID is assigned
// on insertion.
type WorkingMemoryItem struct {
	ID        string
	Type      ItemType
	Weight    WeightVector
	ExpiresAt *time.Time
}

// Validate checks the type tag and weight ranges.
func (i WorkingMemoryItem) Validate() error {
	if !i.Type.Valid() {
		return &ValidationError{
			Field:  "item.type",
			Reason: fmt.Sprintf("unknown type tag %q", string(i.Type)),
		}
	}
	return i.Weight.Validate()
}

// #endregion working-memory-item

// #region momentum
// MomentumVector tracks schema drift as a fixed-dimension direction with
// magnitude and confidence.
type MomentumVector struct {
	Dimensions int
	Magnitude  float64
	Direction  []float64
	Confidence float64
}

// NewMomentumVector returns a zero drift vector of the fixed dimension.
func NewMomentumVector() MomentumVector {
	return MomentumVector{
		Dimensions: DriftDimensions,
		Direction:  make([]float64, DriftDimensions),
	}
}

// Validate checks the direction length and scalar ranges.
func (m MomentumVector) Validate() error {
	if len(m.Direction) != DriftDimensions {
		return &ValidationError{
			Field:  "momentum.direction",
			Reason: fmt.Sprintf("must have %d dimensions, got %d", DriftDimensions, len(m.Direction)),
		}
	}
	if m.Magnitude < 0 || m.Magnitude > 1 {
		return &ValidationError{
			Field:  "momentum.magnitude",
			Reason: fmt.Sprintf("%v out of range [0,1]", m.Magnitude),
		}
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return &ValidationError{
			Field:  "momentum.confidence",
			Reason: fmt.Sprintf("%v out of range [0,1]", m.Confidence),
		}
	}
	return nil
}

// VSPTrend is the packet's own exponentially-decayed perturbation average,
// independent of the engine's windowed estimator.
type VSPTrend struct {
	RollingAvg float64
	Decay      float64
}

// Momentum aggregates the derived motion signals persisted with the packet.
type Momentum struct {
	Drift           MomentumVector
	VSPTrend        VSPTrend
	EmotionalState  []float64
	RhythmSignature string
}

// newMomentum returns the zero momentum snapshot.
func newMomentum() Momentum {
	return Momentum{
		Drift:          NewMomentumVector(),
		VSPTrend:       VSPTrend{Decay: DefaultTrendDecay},
		EmotionalState: make([]float64, EmotionalDimensions),
	}
}

// #endregion momentum

// #region checksums-signature
// Checksums holds the two independent content digests: kv over the packet's
// scalar fields plus momentum and mode, wm over the ordered working memory.
type Checksums struct {
	KV string
	WM string
}

// Signature is a detachable signature over the full packet content
// excluding the signature itself. Empty means unsigned.
type Signature struct {
	Sig string // hex-encoded signature bytes
	Pub string // hex-encoded public key
}

// Present reports whether a signature is attached.
func (s Signature) Present() bool {
	return s.Sig != "" && s.Pub != ""
}

// #endregion checksums-signature
