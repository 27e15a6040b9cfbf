package main

import (
	"fmt"
	"os"

	"github.com/phetsims/gene-expression-basics/internal/genex"
	"github.com/spf13/cobra"
)

// snapshotCmd groups snapshot file utilities.
var snapshotCmd = &cobra.Command{
	Use:                        "snapshot",
	Short:                      "Inspect and validate snapshot files",
	SuggestionsMinimumDistance: 3,
}

// validateCmd checks that a snapshot file decodes and satisfies the strand
// geometry invariants.
var validateCmd = &cobra.Command{
	Use:                        "validate [file]",
	Short:                      "Validate a snapshot JSON file",
	Args:                       cobra.ExactArgs(1),
	Run:                        validateSnapshot,
	SuggestionsMinimumDistance: 3,
}

func init() {
	snapshotCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func validateSnapshot(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading snapshot: %v\n", err)
		os.Exit(1)
	}

	snap, err := genex.DecodeSnapshotJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Snapshot OK (sim=%s, time=%.2f, strands=%d, biomolecules=%d, genes=%d)\n",
		snap.SimulationID, snap.Time, len(snap.Strands), len(snap.Biomolecules), len(snap.Genes))
}
