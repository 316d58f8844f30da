package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--json]")
		os.Exit(2)
	}

	os.Exit(runFixture(*fixturePath, *jsonOut))
}

func runFixture(path string, jsonOut bool) int {
	fixture, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	result, err := replay.Run(fixture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	if jsonOut {
		if err := printJSON(fixture, result); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			return 2
		}
	} else {
		printTrace(fixture, result)
	}

	if result.Summary.Mismatches > 0 {
		return 1
	}
	return 0
}

// #endregion main

// #region output

func printTrace(fixture *replay.Fixture, result *replay.RunResult) {
	if fixture.Description != "" {
		fmt.Printf("Fixture: %s\n\n", fixture.Description)
	}

	fmt.Printf("%-6s  %8s  %-8s  %-10s  %-8s  %s\n",
		"Step", "VSP", "Mode", "Phase", "Expected", "Match")
	fmt.Printf("%-6s+-%8s+-%-8s+-%-10s+-%-8s+-%s\n",
		"------", "--------", "--------", "----------", "--------", "------")

	for _, r := range result.Results {
		expected := "—"
		match := "—"
		if r.Expected != "" {
			expected = r.Expected
			if r.Match {
				match = "OK"
			} else {
				match = "DIFF"
			}
		}
		fmt.Printf("%-6d  %8.4f  %-8s  %-10s  %-8s  %s\n",
			r.Index, r.VSP, r.Mode, r.Phase, expected, match)
	}

	s := result.Summary
	fmt.Printf("\nSummary: %d steps, %d transitions, %d mismatches\n",
		s.Steps, s.Transitions, s.Mismatches)
	fmt.Printf("Final: mode=%s phase=%s trend=%.4f cycles=%d\n",
		s.FinalMode, s.FinalPhase, s.FinalTrend, s.CycleCount)
}

type stepRow struct {
	Index    int     `json:"index"`
	VSP      float64 `json:"vsp"`
	Mode     string  `json:"mode"`
	Phase    string  `json:"phase"`
	Expected string  `json:"expected,omitempty"`
	Match    bool    `json:"match"`
}

type jsonOutput struct {
	Description string    `json:"description,omitempty"`
	Steps       []stepRow `json:"steps"`
	Transitions int       `json:"transitions"`
	Mismatches  int       `json:"mismatches"`
	FinalMode   string    `json:"final_mode"`
	FinalPhase  string    `json:"final_phase"`
	FinalTrend  float64   `json:"final_trend"`
	CycleCount  uint64    `json:"cycle_count"`
}

func printJSON(fixture *replay.Fixture, result *replay.RunResult) error {
	out := jsonOutput{
		Description: fixture.Description,
		Steps:       make([]stepRow, 0, len(result.Results)),
		Transitions: result.Summary.Transitions,
		Mismatches:  result.Summary.Mismatches,
		FinalMode:   result.Summary.FinalMode.String(),
		FinalPhase:  result.Summary.FinalPhase.String(),
		FinalTrend:  result.Summary.FinalTrend,
		CycleCount:  result.Summary.CycleCount,
	}
	for _, r := range result.Results {
		out.Steps = append(out.Steps, stepRow{
			Index:    r.Index,
			VSP:      r.VSP,
			Mode:     r.Mode.String(),
			Phase:    r.Phase.String(),
			Expected: r.Expected,
			Match:    r.Match,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// #endregion output
