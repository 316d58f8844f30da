package packet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
)

// #region portable-types

// Portable is the serialization form of a StatePacket. Field order is the
// canonical digest order; timestamps are RFC3339Nano.
type Portable struct {
	PSPVersion    string            `json:"psp_version"`
	Timestamp     string            `json:"timestamp"`
	InstanceID    string            `json:"instance_id"`
	SchemaHash    string            `json:"schema_hash"`
	WorkingMemory []PortableItem    `json:"working_memory"`
	Momentum      PortableMomentum  `json:"momentum"`
	Mode          string            `json:"mode"`
	Checksums     PortableChecksums `json:"checksums"`
	Sign          PortableSignature `json:"sign"`
}

// PortableItem mirrors WorkingMemoryItem with JSON tags.
type PortableItem struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Weight    PortableWeight `json:"weight"`
	ExpiresAt *string        `json:"expires_at"`
}

// PortableWeight mirrors WeightVector with JSON tags.
type PortableWeight struct {
	Recency      float64 `json:"recency"`
	Perturbation float64 `json:"perturbation"`
	Connectivity float64 `json:"connectivity"`
}

// PortableMomentum mirrors Momentum with JSON tags.
type PortableMomentum struct {
	SchemaDriftVector    PortableDrift `json:"schema_drift_vector"`
	VSPTrend             PortableTrend `json:"vsp_trend"`
	EmotionalStateVector []float64     `json:"emotional_state_vector"`
	RhythmSignature      string        `json:"raa_rhythm_signature"`
}

// PortableDrift mirrors MomentumVector with JSON tags.
type PortableDrift struct {
	Dimensions int       `json:"dimensions"`
	Magnitude  float64   `json:"magnitude"`
	Direction  []float64 `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// PortableTrend mirrors VSPTrend with JSON tags.
type PortableTrend struct {
	RollingAvg float64 `json:"rolling_avg"`
	Decay      float64 `json:"decay"`
}

// PortableChecksums mirrors Checksums with JSON tags.
type PortableChecksums struct {
	KV string `json:"kv"`
	WM string `json:"wm"`
}

// PortableSignature mirrors Signature with JSON tags.
type PortableSignature struct {
	Sig string `json:"sig"`
	Pub string `json:"pub"`
}

// #endregion portable-types

// #region to-portable

// ToPortable converts the packet to its serialization form.
func (p *StatePacket) ToPortable() Portable {
	return Portable{
		PSPVersion:    p.version,
		Timestamp:     p.timestamp.Format(time.RFC3339Nano),
		InstanceID:    p.instanceID,
		SchemaHash:    p.schemaHash,
		WorkingMemory: portableItems(p.workingMemory),
		Momentum:      portableMomentum(p.momentum),
		Mode:          p.mode.String(),
		Checksums:     PortableChecksums{KV: p.checksums.KV, WM: p.checksums.WM},
		Sign:          PortableSignature{Sig: p.signature.Sig, Pub: p.signature.Pub},
	}
}

// Marshal renders the packet as canonical JSON bytes.
func (p *StatePacket) Marshal() ([]byte, error) {
	data, err := json.Marshal(p.ToPortable())
	if err != nil {
		return nil, fmt.Errorf("marshal packet: %w", err)
	}
	return data, nil
}

func portableItems(items []WorkingMemoryItem) []PortableItem {
	out := make([]PortableItem, 0, len(items))
	for _, item := range items {
		pi := PortableItem{
			ID:   item.ID,
			Type: string(item.Type),
			Weight: PortableWeight{
				Recency:      item.Weight.Recency,
				Perturbation: item.Weight.Perturbation,
				Connectivity: item.Weight.Connectivity,
			},
		}
		if item.ExpiresAt != nil {
			s := item.ExpiresAt.Format(time.RFC3339Nano)
			pi.ExpiresAt = &s
		}
		out = append(out, pi)
	}
	return out
}

func portableMomentum(m Momentum) PortableMomentum {
	return PortableMomentum{
		SchemaDriftVector: PortableDrift{
			Dimensions: m.Drift.Dimensions,
			Magnitude:  m.Drift.Magnitude,
			Direction:  append([]float64(nil), m.Drift.Direction...),
			Confidence: m.Drift.Confidence,
		},
		VSPTrend: PortableTrend{
			RollingAvg: m.VSPTrend.RollingAvg,
			Decay:      m.VSPTrend.Decay,
		},
		EmotionalStateVector: append([]float64(nil), m.EmotionalState...),
		RhythmSignature:      m.RhythmSignature,
	}
}

// #endregion to-portable

// #region from-portable

// FromPortable reconstructs a packet, validating every field and verifying
// that the stored checksums match the recomputed content digests. Malformed
// fields yield a ValidationError; digest mismatches an IntegrityError.
func FromPortable(portable Portable) (*StatePacket, error) {
	ts, err := time.Parse(time.RFC3339Nano, portable.Timestamp)
	if err != nil {
		return nil, &ValidationError{
			Field:  "timestamp",
			Reason: fmt.Sprintf("parse %q: %v", portable.Timestamp, err),
		}
	}
	mode, err := perturb.ParseMode(portable.Mode)
	if err != nil {
		return nil, &ValidationError{Field: "mode", Reason: err.Error()}
	}

	items := make([]WorkingMemoryItem, 0, len(portable.WorkingMemory))
	for i, pi := range portable.WorkingMemory {
		item := WorkingMemoryItem{
			ID:   pi.ID,
			Type: ItemType(pi.Type),
			Weight: WeightVector{
				Recency:      pi.Weight.Recency,
				Perturbation: pi.Weight.Perturbation,
				Connectivity: pi.Weight.Connectivity,
			},
		}
		if pi.ExpiresAt != nil {
			exp, err := time.Parse(time.RFC3339Nano, *pi.ExpiresAt)
			if err != nil {
				return nil, &ValidationError{
					Field:  fmt.Sprintf("working_memory[%d].expires_at", i),
					Reason: err.Error(),
				}
			}
			item.ExpiresAt = &exp
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	momentum, err := momentumFromPortable(portable.Momentum)
	if err != nil {
		return nil, err
	}

	p := &StatePacket{
		version:       portable.PSPVersion,
		timestamp:     ts,
		instanceID:    portable.InstanceID,
		schemaHash:    portable.SchemaHash,
		workingMemory: items,
		momentum:      momentum,
		mode:          mode,
		checksums:     Checksums{KV: portable.Checksums.KV, WM: portable.Checksums.WM},
		signature:     Signature{Sig: portable.Sign.Sig, Pub: portable.Sign.Pub},
		capacity:      DefaultWorkingMemoryCapacity,
	}

	kv, wm := p.computeChecksums()
	if kv != p.checksums.KV {
		return nil, &IntegrityError{Digest: "kv"}
	}
	if wm != p.checksums.WM {
		return nil, &IntegrityError{Digest: "wm"}
	}
	return p, nil
}

// Unmarshal parses canonical JSON bytes back into a verified packet.
func Unmarshal(data []byte) (*StatePacket, error) {
	var portable Portable
	if err := json.Unmarshal(data, &portable); err != nil {
		return nil, &ValidationError{Field: "packet", Reason: fmt.Sprintf("parse json: %v", err)}
	}
	return FromPortable(portable)
}

func momentumFromPortable(pm PortableMomentum) (Momentum, error) {
	drift := MomentumVector{
		Dimensions: pm.SchemaDriftVector.Dimensions,
		Magnitude:  pm.SchemaDriftVector.Magnitude,
		Direction:  append([]float64(nil), pm.SchemaDriftVector.Direction...),
		Confidence: pm.SchemaDriftVector.Confidence,
	}
	if err := drift.Validate(); err != nil {
		return Momentum{}, err
	}
	if len(pm.EmotionalStateVector) != EmotionalDimensions {
		return Momentum{}, &ValidationError{
			Field:  "momentum.emotional_state",
			Reason: fmt.Sprintf("must have %d dimensions, got %d", EmotionalDimensions, len(pm.EmotionalStateVector)),
		}
	}
	if pm.VSPTrend.Decay < 0 || pm.VSPTrend.Decay > 1 {
		return Momentum{}, &ValidationError{
			Field:  "momentum.vsp_trend.decay",
			Reason: fmt.Sprintf("%v out of range [0,1]", pm.VSPTrend.Decay),
		}
	}
	return Momentum{
		Drift:           drift,
		VSPTrend:        VSPTrend{RollingAvg: pm.VSPTrend.RollingAvg, Decay: pm.VSPTrend.Decay},
		EmotionalState:  append([]float64(nil), pm.EmotionalStateVector...),
		RhythmSignature: pm.RhythmSignature,
	}, nil
}

// #endregion from-portable
