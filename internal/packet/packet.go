package packet

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/signing"
)

// Version is the packet format version.
const Version = "1.1"

// #region packet
// StatePacket is the persisted, integrity-checked aggregate of working
// memory, momentum, and mode. Fields are mutated only through methods;
// every mutator ends in commit(), so the checksums are valid whenever a
// public method has returned.
type StatePacket struct {
	version       string
	timestamp     time.Time
	instanceID    string
	schemaHash    string
	workingMemory []WorkingMemoryItem
	momentum      Momentum
	mode          perturb.Mode
	checksums     Checksums
	signature     Signature
	capacity      int
}

// New creates a fresh unsigned packet in Idle mode with a random instance id.
func New() *StatePacket {
	p := &StatePacket{
		version:    Version,
		timestamp:  time.Now().UTC(),
		instanceID: uuid.New().String(),
		momentum:   newMomentum(),
		mode:       perturb.ModeIdle,
		capacity:   DefaultWorkingMemoryCapacity,
	}
	p.commit()
	return p
}

// #endregion packet

// #region accessors
// Version returns the packet format version.
func (p *StatePacket) Version() string { return p.version }

// Timestamp returns the packet creation time.
func (p *StatePacket) Timestamp() time.Time { return p.timestamp }

// InstanceID returns the packet's instance identity.
func (p *StatePacket) InstanceID() string { return p.instanceID }

// SchemaHash returns the hash of the schema basis this packet was built
// against.
func (p *StatePacket) SchemaHash() string { return p.schemaHash }

// Mode returns the recorded cognitive mode.
func (p *StatePacket) Mode() perturb.Mode { return p.mode }

// WorkingMemory returns a copy of the working-memory list in priority order.
func (p *StatePacket) WorkingMemory() []WorkingMemoryItem {
	return append([]WorkingMemoryItem(nil), p.workingMemory...)
}

// Momentum returns a deep copy of the momentum snapshot.
func (p *StatePacket) Momentum() Momentum {
	m := p.momentum
	m.Drift.Direction = append([]float64(nil), p.momentum.Drift.Direction...)
	m.EmotionalState = append([]float64(nil), p.momentum.EmotionalState...)
	return m
}

// Checksums returns the stored content digests.
func (p *StatePacket) Checksums() Checksums { return p.checksums }

// SignatureInfo returns the stored signature, if any.
func (p *StatePacket) SignatureInfo() Signature { return p.signature }

// #endregion accessors

// #region mutators
// SetSchemaHash records the schema basis hash.
func (p *StatePacket) SetSchemaHash(hash string) {
	p.schemaHash = hash
	p.commit()
}

// AddWorkingMemoryItem validates and appends an item, assigning an id when
// absent, then prunes back to capacity.
func (p *StatePacket) AddWorkingMemoryItem(item WorkingMemoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	p.workingMemory = append(p.workingMemory, item)
	p.pruneWorkingMemory()
	p.commit()
	return nil
}

// pruneWorkingMemory keeps the capacity highest-weight items. The sort is
// stable, so equal weights keep insertion order.
func (p *StatePacket) pruneWorkingMemory() {
	if len(p.workingMemory) <= p.capacity {
		return
	}
	sort.SliceStable(p.workingMemory, func(i, j int) bool {
		return p.workingMemory[i].Weight.TotalWeight() > p.workingMemory[j].Weight.TotalWeight()
	})
	p.workingMemory = p.workingMemory[:p.capacity]
}

// MomentumUpdate names the optional fields for UpdateMomentum. Nil or empty
// fields are left unchanged.
type MomentumUpdate struct {
	Drift           *MomentumVector
	VSPValue        *float64
	EmotionalState  []float64
	RhythmSignature string
}

// UpdateMomentum applies any subset of momentum fields. A supplied
// perturbation value folds into the packet's own EMA trend:
// rolling_avg = decay*rolling_avg + (1-decay)*v.
func (p *StatePacket) UpdateMomentum(u MomentumUpdate) error {
	if u.Drift != nil {
		if err := u.Drift.Validate(); err != nil {
			return err
		}
	}
	if u.VSPValue != nil && (*u.VSPValue < 0 || *u.VSPValue > 1) {
		return &ValidationError{
			Field:  "momentum.vsp_value",
			Reason: fmt.Sprintf("%v out of range [0,1]", *u.VSPValue),
		}
	}
	if u.EmotionalState != nil && len(u.EmotionalState) != EmotionalDimensions {
		return &ValidationError{
			Field:  "momentum.emotional_state",
			Reason: fmt.Sprintf("must have %d dimensions, got %d", EmotionalDimensions, len(u.EmotionalState)),
		}
	}

	if u.Drift != nil {
		drift := *u.Drift
		drift.Direction = append([]float64(nil), u.Drift.Direction...)
		p.momentum.Drift = drift
	}
	if u.VSPValue != nil {
		decay := p.momentum.VSPTrend.Decay
		p.momentum.VSPTrend.RollingAvg = decay*p.momentum.VSPTrend.RollingAvg + (1-decay)**u.VSPValue
	}
	if u.EmotionalState != nil {
		p.momentum.EmotionalState = append([]float64(nil), u.EmotionalState...)
	}
	if u.RhythmSignature != "" {
		p.momentum.RhythmSignature = u.RhythmSignature
	}

	p.commit()
	return nil
}

// SetMode records the cognitive mode.
func (p *StatePacket) SetMode(m perturb.Mode) error {
	if !m.Valid() {
		return &ValidationError{
			Field:  "mode",
			Reason: fmt.Sprintf("unknown mode %d", int(m)),
		}
	}
	p.mode = m
	p.commit()
	return nil
}

// #endregion mutators

// #region signing
// Sign serializes the packet content excluding the signature field, signs
// it through the provided signer, and stores the hex-encoded signature and
// public key.
func (p *StatePacket) Sign(signer signing.Signer) error {
	msg, err := p.signatureMessage()
	if err != nil {
		return fmt.Errorf("sign packet: %w", err)
	}
	sig, pub, err := signer.Sign(msg)
	if err != nil {
		return fmt.Errorf("sign packet: %w", err)
	}
	p.signature = Signature{
		Sig: hex.EncodeToString(sig),
		Pub: hex.EncodeToString(pub),
	}
	p.commit()
	return nil
}

// VerifySignature checks the stored signature against the stored public
// key. Absent signatures and malformed key or signature bytes uniformly
// yield false.
func (p *StatePacket) VerifySignature() bool {
	if !p.signature.Present() {
		return false
	}
	sig, err := hex.DecodeString(p.signature.Sig)
	if err != nil {
		return false
	}
	pub, err := hex.DecodeString(p.signature.Pub)
	if err != nil {
		return false
	}
	msg, err := p.signatureMessage()
	if err != nil {
		return false
	}
	return signing.Verify(msg, sig, pub)
}

// signatureMessage is the canonical byte encoding of the packet with the
// signature field zeroed.
func (p *StatePacket) signatureMessage() ([]byte, error) {
	portable := p.ToPortable()
	portable.Sign = PortableSignature{}
	msg, err := json.Marshal(portable)
	if err != nil {
		return nil, fmt.Errorf("marshal signature payload: %w", err)
	}
	return msg, nil
}

// #endregion signing

// #region checksums
// VerifyChecksums recomputes both digests from current content and compares
// them to the stored values.
func (p *StatePacket) VerifyChecksums() bool {
	kv, wm := p.computeChecksums()
	return kv == p.checksums.KV && wm == p.checksums.WM
}

// commit recomputes the content digests. Every mutator funnels through
// here, which is what keeps the checksum invariant structural rather than
// conventional.
func (p *StatePacket) commit() {
	p.checksums.KV, p.checksums.WM = p.computeChecksums()
}

// kvPayload is the canonical encoding the kv digest covers: scalar and
// identity fields plus momentum and mode, in fixed field order.
type kvPayload struct {
	PSPVersion string           `json:"psp_version"`
	Timestamp  string           `json:"timestamp"`
	InstanceID string           `json:"instance_id"`
	SchemaHash string           `json:"schema_hash"`
	Momentum   PortableMomentum `json:"momentum"`
	Mode       string           `json:"mode"`
}

func (p *StatePacket) computeChecksums() (kv, wm string) {
	// Marshal cannot fail here: fixed struct shapes, finite floats.
	kvBytes, _ := json.Marshal(kvPayload{
		PSPVersion: p.version,
		Timestamp:  p.timestamp.Format(time.RFC3339Nano),
		InstanceID: p.instanceID,
		SchemaHash: p.schemaHash,
		Momentum:   portableMomentum(p.momentum),
		Mode:       p.mode.String(),
	})
	wmBytes, _ := json.Marshal(portableItems(p.workingMemory))

	kvSum := sha256.Sum256(kvBytes)
	wmSum := sha256.Sum256(wmBytes)
	return hex.EncodeToString(kvSum[:]), hex.EncodeToString(wmSum[:])
}

// #endregion checksums

// #region filters
// WorkingMemoryByType returns the items carrying the given type tag.
func (p *StatePacket) WorkingMemoryByType(t ItemType) []WorkingMemoryItem {
	var out []WorkingMemoryItem
	for _, item := range p.workingMemory {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// WorkingMemoryByWeight returns the items whose total weight meets minWeight.
func (p *StatePacket) WorkingMemoryByWeight(minWeight float64) []WorkingMemoryItem {
	var out []WorkingMemoryItem
	for _, item := range p.workingMemory {
		if item.Weight.TotalWeight() >= minWeight {
			out = append(out, item)
		}
	}
	return out
}

// #endregion filters

// #region clone
// Clone returns a deep copy with identical content and checksums.
func (p *StatePacket) Clone() *StatePacket {
	out := &StatePacket{
		version:       p.version,
		timestamp:     p.timestamp,
		instanceID:    p.instanceID,
		schemaHash:    p.schemaHash,
		workingMemory: append([]WorkingMemoryItem(nil), p.workingMemory...),
		momentum:      p.Momentum(),
		mode:          p.mode,
		checksums:     p.checksums,
		signature:     p.signature,
		capacity:      p.capacity,
	}
	return out
}

// #endregion clone
