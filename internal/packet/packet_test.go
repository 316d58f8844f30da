package packet

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/signing"
)

func TestNewPacketChecksumsValid(t *testing.T) {
	p := New()
	if !p.VerifyChecksums() {
		t.Fatal("fresh packet must pass checksum verification")
	}
	if p.Version() != Version {
		t.Fatalf("unexpected version %q", p.Version())
	}
	if p.Mode() != perturb.ModeIdle {
		t.Fatalf("expected Idle mode on fresh packet, got %v", p.Mode())
	}
	if p.SignatureInfo().Present() {
		t.Fatal("fresh packet must be unsigned")
	}
}

func TestChecksumsValidAfterEveryMutation(t *testing.T) {
	p := New()

	p.SetSchemaHash("abc123")
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after SetSchemaHash")
	}

	err := p.AddWorkingMemoryItem(WorkingMemoryItem{
		Type:   ItemContext,
		Weight: WeightVector{Recency: 0.5},
	})
	if err != nil {
		t.Fatalf("AddWorkingMemoryItem: %v", err)
	}
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after AddWorkingMemoryItem")
	}

	v := 0.4
	if err := p.UpdateMomentum(MomentumUpdate{VSPValue: &v}); err != nil {
		t.Fatalf("UpdateMomentum: %v", err)
	}
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after UpdateMomentum")
	}

	if err := p.SetMode(perturb.ModeDeep); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after SetMode")
	}
}

func TestWorkingMemoryPruneKeepsHighestWeights(t *testing.T) {
	p := New()

	// 60 items with strictly increasing weights; only the top 50 survive.
	for i := 0; i < 60; i++ {
		err := p.AddWorkingMemoryItem(WorkingMemoryItem{
			ID:     fmt.Sprintf("item-%02d", i),
			Type:   ItemQualiaRef,
			Weight: WeightVector{Recency: float64(i) / 60},
		})
		if err != nil {
			t.Fatalf("add item %d: %v", i, err)
		}
	}

	items := p.WorkingMemory()
	if len(items) != DefaultWorkingMemoryCapacity {
		t.Fatalf("expected %d items after pruning, got %d", DefaultWorkingMemoryCapacity, len(items))
	}

	// The kept set is exactly the 50 highest: items 10..59.
	kept := make(map[string]bool, len(items))
	for _, item := range items {
		kept[item.ID] = true
	}
	for i := 0; i < 10; i++ {
		if kept[fmt.Sprintf("item-%02d", i)] {
			t.Fatalf("low-weight item-%02d should have been evicted", i)
		}
	}
	for i := 10; i < 60; i++ {
		if !kept[fmt.Sprintf("item-%02d", i)] {
			t.Fatalf("high-weight item-%02d should have been kept", i)
		}
	}
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after pruning")
	}
}

func TestWorkingMemoryValidation(t *testing.T) {
	p := New()

	err := p.AddWorkingMemoryItem(WorkingMemoryItem{Type: "daydream"})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for bad type tag, got %v", err)
	}

	err = p.AddWorkingMemoryItem(WorkingMemoryItem{
		Type:   ItemContext,
		Weight: WeightVector{Recency: 1.5},
	})
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for out-of-range weight, got %v", err)
	}

	if len(p.WorkingMemory()) != 0 {
		t.Fatal("rejected items must not be stored")
	}
}

func TestUpdateMomentumTrendEMA(t *testing.T) {
	p := New()

	v := 0.5
	if err := p.UpdateMomentum(MomentumUpdate{VSPValue: &v}); err != nil {
		t.Fatalf("UpdateMomentum: %v", err)
	}

	want := 0.5 * (1 - DefaultTrendDecay)
	got := p.Momentum().VSPTrend.RollingAvg
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("rolling average: got %v want %v", got, want)
	}

	// Second fold: decay*prev + (1-decay)*v.
	if err := p.UpdateMomentum(MomentumUpdate{VSPValue: &v}); err != nil {
		t.Fatalf("UpdateMomentum: %v", err)
	}
	want = DefaultTrendDecay*want + (1-DefaultTrendDecay)*0.5
	got = p.Momentum().VSPTrend.RollingAvg
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("second fold: got %v want %v", got, want)
	}
}

func TestUpdateMomentumValidation(t *testing.T) {
	p := New()
	var valErr *ValidationError

	bad := MomentumVector{Dimensions: 3, Direction: []float64{1, 2, 3}}
	if err := p.UpdateMomentum(MomentumUpdate{Drift: &bad}); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for short drift vector, got %v", err)
	}

	if err := p.UpdateMomentum(MomentumUpdate{EmotionalState: []float64{1, 2}}); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for short emotional state, got %v", err)
	}

	v := 1.5
	if err := p.UpdateMomentum(MomentumUpdate{VSPValue: &v}); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for out-of-range vsp value, got %v", err)
	}
}

func TestUpdateMomentumPartialFields(t *testing.T) {
	p := New()

	emotional := []float64{0.1, -0.2, 0, 0, 0, 0, 0, 0.3}
	if err := p.UpdateMomentum(MomentumUpdate{
		EmotionalState:  emotional,
		RhythmSignature: "reflect:7",
	}); err != nil {
		t.Fatalf("UpdateMomentum: %v", err)
	}

	m := p.Momentum()
	if m.EmotionalState[1] != -0.2 {
		t.Fatalf("emotional state not applied: %v", m.EmotionalState)
	}
	if m.RhythmSignature != "reflect:7" {
		t.Fatalf("rhythm signature not applied: %q", m.RhythmSignature)
	}
	// Untouched fields keep their zero values.
	if m.VSPTrend.RollingAvg != 0 {
		t.Fatalf("trend should be untouched, got %v", m.VSPTrend.RollingAvg)
	}
	if m.Drift.Magnitude != 0 {
		t.Fatalf("drift should be untouched, got %v", m.Drift.Magnitude)
	}
}

func TestSetModeRejectsInvalid(t *testing.T) {
	p := New()

	var valErr *ValidationError
	if err := p.SetMode(perturb.Mode(9)); !errors.As(err, &valErr) {
		t.Fatal("expected ValidationError for out-of-range mode")
	}
	if p.Mode() != perturb.ModeIdle {
		t.Fatal("rejected mode must not be stored")
	}

	if err := p.SetMode(perturb.ModeCrisis); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if p.Mode() != perturb.ModeCrisis {
		t.Fatalf("expected Crisis, got %v", p.Mode())
	}
}

func TestSignAndVerify(t *testing.T) {
	p := New()
	signer, err := signing.GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner: %v", err)
	}

	if p.VerifySignature() {
		t.Fatal("unsigned packet must not verify")
	}

	if err := p.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !p.SignatureInfo().Present() {
		t.Fatal("signature missing after Sign")
	}
	if !p.VerifySignature() {
		t.Fatal("signature must verify immediately after signing")
	}
	if !p.VerifyChecksums() {
		t.Fatal("checksums invalid after signing")
	}

	// Any content mutation invalidates the detached signature.
	if err := p.SetMode(perturb.ModeFlow); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if p.VerifySignature() {
		t.Fatal("signature must not verify after content changed")
	}
}

func TestVerifySignatureMalformedBytes(t *testing.T) {
	p := New()
	signer, err := signing.GenerateSigner()
	if err != nil {
		t.Fatalf("GenerateSigner: %v", err)
	}
	if err := p.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Corrupt the stored signature hex; verification folds to false.
	p.signature.Sig = "zz" + p.signature.Sig[2:]
	if p.VerifySignature() {
		t.Fatal("malformed signature hex must yield false")
	}

	p.signature = Signature{Sig: "abcd", Pub: "ef01"}
	if p.VerifySignature() {
		t.Fatal("wrong-length key material must yield false")
	}
}

func TestWorkingMemoryFilters(t *testing.T) {
	p := New()

	add := func(id string, typ ItemType, recency float64) {
		t.Helper()
		err := p.AddWorkingMemoryItem(WorkingMemoryItem{
			ID: id, Type: typ, Weight: WeightVector{Recency: recency},
		})
		if err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	add("q1", ItemQualiaRef, 1.0)
	add("d1", ItemDraftSchema, 0.5)
	add("c1", ItemContext, 0.1)

	byType := p.WorkingMemoryByType(ItemDraftSchema)
	if len(byType) != 1 || byType[0].ID != "d1" {
		t.Fatalf("type filter: got %+v", byType)
	}

	// total weight = 0.4 * recency here.
	byWeight := p.WorkingMemoryByWeight(0.2)
	if len(byWeight) != 2 {
		t.Fatalf("weight filter: expected 2 items, got %d", len(byWeight))
	}
	for _, item := range byWeight {
		if item.ID == "c1" {
			t.Fatal("weight filter kept an item below threshold")
		}
	}
}

func TestExpiryRoundTripsThroughClone(t *testing.T) {
	p := New()
	exp := time.Now().UTC().Add(time.Hour)
	err := p.AddWorkingMemoryItem(WorkingMemoryItem{
		Type:      ItemContext,
		Weight:    WeightVector{Recency: 0.3},
		ExpiresAt: &exp,
	})
	if err != nil {
		t.Fatalf("AddWorkingMemoryItem: %v", err)
	}

	clone := p.Clone()
	if clone.Checksums() != p.Checksums() {
		t.Fatal("clone must carry identical checksums")
	}
	if !clone.VerifyChecksums() {
		t.Fatal("clone must pass checksum verification")
	}
	items := clone.WorkingMemory()
	if len(items) != 1 || items[0].ExpiresAt == nil || !items[0].ExpiresAt.Equal(exp) {
		t.Fatalf("expiry lost in clone: %+v", items)
	}
}
