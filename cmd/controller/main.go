package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/clock"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/cycle"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/logging"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/packet"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/perturb"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/signing"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/vault"
)

// #region main
func main() {
	dbPath := envOr("RHYTHM_DB", "cognitive_rhythm.db")

	store, err := vault.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	signer, err := loadSigner()
	if err != nil {
		log.Fatalf("failed to load signer: %v", err)
	}

	clk := clock.System{}
	engine, err := perturb.NewEngine(clk, perturb.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}
	scheduler, err := cycle.NewScheduler(cycle.DefaultConfig(), clk.Now())
	if err != nil {
		log.Fatalf("failed to build scheduler: %v", err)
	}

	// Resume the active packet if one exists, otherwise start fresh.
	pkt, err := store.LoadCurrent()
	if err != nil {
		log.Println("No active packet found, creating a fresh one...")
		pkt = packet.New()
	}

	fmt.Println("Cognitive Rhythm Controller ready.")
	fmt.Printf("  DB: %s | Instance: %s\n", dbPath, pkt.InstanceID())
	fmt.Println("Enter an observation vector (or a single value as precomputed vsp).")
	fmt.Println("Commands: ref <vector> | stats | quit")

	scanner := bufio.NewScanner(os.Stdin)
	turnNum := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if line == "stats" {
			printStats(engine, scheduler, clk)
			continue
		}
		if rest, ok := strings.CutPrefix(line, "ref "); ok {
			vec, err := parseVector(rest)
			if err != nil {
				log.Printf("bad reference: %v", err)
				continue
			}
			engine.SetReference(vec)
			fmt.Printf("reference set (%d dims)\n", len(vec))
			continue
		}

		values, err := parseVector(line)
		if err != nil {
			log.Printf("bad input: %v", err)
			continue
		}

		var vsp float64
		if len(values) == 1 {
			vsp = values[0]
		} else {
			vsp, err = engine.Compute(values, perturb.ComputeOptions{})
			if err != nil {
				log.Printf("compute error: %v", err)
				continue
			}
		}

		turnNum++
		oldMode := engine.Mode()
		mode := engine.ModeFor(vsp)
		phase := scheduler.Advance(mode, clk.Now())

		if err := applyTurn(pkt, vsp, mode, scheduler.Signature()); err != nil {
			log.Printf("packet update error: %v", err)
			continue
		}
		if err := pkt.Sign(signer); err != nil {
			log.Printf("sign error: %v", err)
			continue
		}

		snapshotID, err := store.SaveSnapshot(pkt)
		if err != nil {
			log.Printf("snapshot error: %v", err)
			continue
		}

		err = logging.LogTransition(store.DB(), logging.TransitionEntry{
			SnapshotID: snapshotID,
			OldMode:    oldMode.String(),
			NewMode:    mode.String(),
			VSP:        vsp,
			Trend:      engine.Trend(),
			Phase:      phase.String(),
			Reason:     transitionReason(oldMode, mode, len(values) == 1),
		})
		if err != nil {
			log.Printf("logging error: %v", err)
		}

		fmt.Printf("[turn-%d] vsp=%.4f mode=%s phase=%s trend=%.4f\n",
			turnNum, vsp, mode, phase, engine.Trend())
	}
}

// #endregion main

// #region turn
// applyTurn folds one evaluation into the packet: momentum update with the
// current rhythm signature, then the resolved mode.
func applyTurn(pkt *packet.StatePacket, vsp float64, mode perturb.Mode, rhythm string) error {
	err := pkt.UpdateMomentum(packet.MomentumUpdate{
		VSPValue:        &vsp,
		RhythmSignature: rhythm,
	})
	if err != nil {
		return err
	}
	return pkt.SetMode(mode)
}

func transitionReason(oldMode, newMode perturb.Mode, precomputed bool) string {
	source := "observation"
	if precomputed {
		source = "precomputed"
	}
	if oldMode == newMode {
		return fmt.Sprintf("held (%s)", source)
	}
	return fmt.Sprintf("%s -> %s (%s)", oldMode, newMode, source)
}

func printStats(engine *perturb.Engine, scheduler *cycle.Scheduler, clk clock.Clock) {
	es := engine.Stats()
	cs := scheduler.Stats(clk.Now())
	fmt.Printf("mode=%s vsp=%.4f trend=%.4f history=%d since_change=%s\n",
		es.Mode, es.CurrentValue, es.Trend, es.HistoryLen, es.SinceModeChange)
	fmt.Printf("phase=%s cycle=%d progress=%.2f signature=%s\n",
		cs.Phase, cs.CycleCount, cs.Progress, scheduler.Signature())
}

// #endregion turn

// #region helpers
// loadSigner builds the packet signer from RHYTHM_SEED (hex-encoded ed25519
// seed) or generates an ephemeral key when the variable is unset.
func loadSigner() (signing.Signer, error) {
	seedHex := os.Getenv("RHYTHM_SEED")
	if seedHex == "" {
		log.Println("RHYTHM_SEED not set, generating ephemeral signing key")
		return signing.GenerateSigner()
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("decode RHYTHM_SEED: %w", err)
	}
	return signing.NewEd25519Signer(seed)
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
