package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/logging"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/packet"
	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/vault"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to cognitive_rhythm.db")
	last := flag.Int("last", 20, "show N most recent snapshots")
	snapshot := flag.String("snapshot", "", "show single snapshot detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/cognitive_rhythm.db [--last N] [--snapshot id] [--json]")
		os.Exit(2)
	}

	store, err := vault.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *snapshot != "" {
		if err := runDetailMode(store, *snapshot, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SnapshotID string `json:"snapshot_id"`
	InstanceID string `json:"instance_id"`
	Mode       string `json:"mode"`
	KVDigest   string `json:"kv_digest"`
	WMDigest   string `json:"wm_digest"`
	Integrity  string `json:"integrity"`
	TakenAt    string `json:"taken_at"`
}

func runListMode(store *vault.Store, last int, jsonOut bool) error {
	infos, err := store.History(last)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		return nil
	}

	// History returns DESC, reverse for chronological order.
	listRows := make([]listRow, len(infos))
	for i, info := range infos {
		listRows[len(infos)-1-i] = listRow{
			SnapshotID: info.SnapshotID,
			InstanceID: info.InstanceID,
			Mode:       info.Mode,
			KVDigest:   info.KVDigest,
			WMDigest:   info.WMDigest,
			Integrity:  integrityStatus(store, info.SnapshotID),
			TakenAt:    info.TakenAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(listRows)
	}
	printListTable(listRows)
	return printTransitions(store, last, jsonOut)
}

func printListTable(rows []listRow) {
	fmt.Printf("%-12s  %-12s  %-8s  %-12s  %-12s  %-9s  %s\n",
		"Snapshot", "Instance", "Mode", "KV Digest", "WM Digest", "Integrity", "Time")
	fmt.Printf("%-12s+-%-12s+-%-8s+-%-12s+-%-12s+-%-9s+-%s\n",
		"------------", "------------", "--------", "------------", "------------", "---------", "--------------------")

	for _, r := range rows {
		fmt.Printf("%-12s  %-12s  %-8s  %-12s  %-12s  %-9s  %s\n",
			shortID(r.SnapshotID), shortID(r.InstanceID), r.Mode,
			shortID(r.KVDigest), shortID(r.WMDigest), r.Integrity, r.TakenAt)
	}
}

// integrityStatus reloads a snapshot through the packet layer so digest and
// validation failures surface the same way they would to the controller.
func integrityStatus(store *vault.Store, snapshotID string) string {
	_, err := store.LoadSnapshot(snapshotID)
	if err == nil {
		return "ok"
	}
	var integrityErr *packet.IntegrityError
	if errors.As(err, &integrityErr) {
		return "tampered"
	}
	return "unreadable"
}

func printTransitions(store *vault.Store, limit int, jsonOut bool) error {
	entries, err := logging.RecentTransitions(store.DB(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	fmt.Printf("\nRecent transitions (newest first):\n")
	fmt.Printf("%-12s  %-8s  %-8s  %8s  %8s  %-10s  %s\n",
		"Snapshot", "From", "To", "VSP", "Trend", "Phase", "Reason")
	for _, e := range entries {
		fmt.Printf("%-12s  %-8s  %-8s  %8.4f  %8.4f  %-10s  %s\n",
			shortID(e.SnapshotID), e.OldMode, e.NewMode, e.VSP, e.Trend, e.Phase, e.Reason)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	SnapshotID     string           `json:"snapshot_id"`
	InstanceID     string           `json:"instance_id"`
	Version        string           `json:"psp_version"`
	Timestamp      string           `json:"timestamp"`
	SchemaHash     string           `json:"schema_hash,omitempty"`
	Mode           string           `json:"mode"`
	RollingAvg     float64          `json:"vsp_rolling_avg"`
	RhythmSig      string           `json:"raa_rhythm_signature,omitempty"`
	WorkingMemory  []wmDetail       `json:"working_memory"`
	Checksums      packet.Checksums `json:"checksums"`
	ChecksumsValid bool             `json:"checksums_valid"`
	SignatureValid *bool            `json:"signature_valid,omitempty"`
}

type wmDetail struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Weight float64 `json:"total_weight"`
}

func runDetailMode(store *vault.Store, snapshotID string, jsonOut bool) error {
	pkt, err := store.LoadSnapshot(snapshotID)
	if err != nil {
		return err
	}

	momentum := pkt.Momentum()
	out := detailOutput{
		SnapshotID:     snapshotID,
		InstanceID:     pkt.InstanceID(),
		Version:        pkt.Version(),
		Timestamp:      pkt.Timestamp().Format("2006-01-02T15:04:05Z"),
		SchemaHash:     pkt.SchemaHash(),
		Mode:           pkt.Mode().String(),
		RollingAvg:     momentum.VSPTrend.RollingAvg,
		RhythmSig:      momentum.RhythmSignature,
		Checksums:      pkt.Checksums(),
		ChecksumsValid: pkt.VerifyChecksums(),
	}
	for _, item := range pkt.WorkingMemory() {
		out.WorkingMemory = append(out.WorkingMemory, wmDetail{
			ID:     item.ID,
			Type:   string(item.Type),
			Weight: item.Weight.TotalWeight(),
		})
	}
	if pkt.SignatureInfo().Present() {
		valid := pkt.VerifySignature()
		out.SignatureValid = &valid
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Snapshot:    %s\n", out.SnapshotID)
	fmt.Printf("Instance:    %s\n", out.InstanceID)
	fmt.Printf("Version:     %s\n", out.Version)
	fmt.Printf("Timestamp:   %s\n", out.Timestamp)
	fmt.Printf("Mode:        %s\n", out.Mode)
	fmt.Printf("Rolling avg: %.4f\n", out.RollingAvg)
	if out.RhythmSig != "" {
		fmt.Printf("Rhythm sig:  %s\n", out.RhythmSig)
	}
	fmt.Printf("Checksums:   kv=%s wm=%s valid=%v\n",
		shortID(out.Checksums.KV), shortID(out.Checksums.WM), out.ChecksumsValid)
	if out.SignatureValid != nil {
		fmt.Printf("Signature:   valid=%v\n", *out.SignatureValid)
	} else {
		fmt.Printf("Signature:   absent\n")
	}
	fmt.Printf("Working memory (%d items):\n", len(out.WorkingMemory))
	for _, item := range out.WorkingMemory {
		fmt.Printf("  %-38s  %-13s  %.4f\n", item.ID, item.Type, item.Weight)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion helpers
