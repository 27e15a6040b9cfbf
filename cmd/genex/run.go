package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/phetsims/gene-expression-basics/internal/genex"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scenarioHelp = `scenario JSON file seeding the simulation with genes, biomolecules
and pre-made strands before the first tick.`

// runCmd runs a headless simulation for a fixed number of ticks and prints a
// summary of what happened.
var runCmd = &cobra.Command{
	Use:                        "run",
	Short:                      "Run a headless simulation for a fixed number of ticks",
	Run:                        runSimulation,
	SuggestionsMinimumDistance: 3,
	Long: `Run the gene expression engine without a server: seed a cell from a
scenario file, step it a fixed number of ticks, and print a summary of
strands, biomolecules and lifecycle events. Optionally write the final
state as a snapshot JSON file.`,
	Aliases: []string{"sim"},
}

func init() {
	runCmd.Flags().StringP("params", "p", "", "path to a JSON parameters file (defaults used when empty)")
	runCmd.Flags().StringP("scenario", "s", "", scenarioHelp)
	runCmd.Flags().StringP("out", "o", "", "write the final state as a snapshot JSON file")
	runCmd.Flags().IntP("ticks", "t", 1000, "number of ticks to run")
	runCmd.Flags().Float64P("dt", "d", 0.1, "simulated seconds per tick")
	runCmd.Flags().Int64P("seed", "r", 0, "random seed (0 uses a time-based seed)")
	runCmd.Flags().BoolP("verbose", "v", false, "print lifecycle events as they happen")
	viper.BindPFlag("verbose", runCmd.Flags().Lookup("verbose"))

	rootCmd.AddCommand(runCmd)
}

// scenario is the seed file format: everything placed in the cell before the
// first tick.
type scenario struct {
	Genes []struct {
		Start  genex.Vector2 `json:"start"`
		Length float64       `json:"length"`
	} `json:"genes"`
	Biomolecules []struct {
		Kind          string        `json:"kind"`
		Position      genex.Vector2 `json:"position"`
		ChannelLength float64       `json:"channel_length"`
	} `json:"biomolecules"`
	Strands []struct {
		Position genex.Vector2 `json:"position"`
		Length   float64       `json:"length"`
	} `json:"strands"`
}

func runSimulation(cmd *cobra.Command, args []string) {
	paramsFile, _ := cmd.Flags().GetString("params")
	scenarioFile, _ := cmd.Flags().GetString("scenario")
	outFile, _ := cmd.Flags().GetString("out")
	ticks, _ := cmd.Flags().GetInt("ticks")
	dt, _ := cmd.Flags().GetFloat64("dt")
	seed, _ := cmd.Flags().GetInt64("seed")
	verbose := viper.GetBool("verbose")

	if ticks <= 0 {
		fmt.Fprintf(os.Stderr, "error: --ticks must be positive\n")
		os.Exit(1)
	}
	if dt <= 0 {
		fmt.Fprintf(os.Stderr, "error: --dt must be positive\n")
		os.Exit(1)
	}

	params := genex.DefaultParameters()
	if paramsFile != "" {
		loaded, err := loadParameters(paramsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading parameters: %v\n", err)
			os.Exit(1)
		}
		params = loaded
	}

	var sim *genex.Simulation
	if seed != 0 {
		sim = genex.NewSimulationWithSeed(params, seed)
	} else {
		sim = genex.NewSimulation(params)
	}
	sim.SetID("cli")

	if scenarioFile != "" {
		if err := seedScenario(sim, scenarioFile); err != nil {
			fmt.Fprintf(os.Stderr, "error loading scenario: %v\n", err)
			os.Exit(1)
		}
	}

	eventCounts := make(map[genex.EventType]int)
	for i := 0; i < ticks; i++ {
		sim.Step(dt)
		for _, event := range sim.DrainEvents() {
			eventCounts[event.Type]++
			if verbose {
				fmt.Printf("t=%8.2f %-22s strand=%s\n", event.SimTime, event.Type, event.StrandID)
			}
		}
	}

	printSummary(sim, ticks, eventCounts)

	if outFile != "" {
		data, err := genex.EncodeSnapshotJSON(sim.Snapshot())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding snapshot: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", outFile)
	}
}

func loadParameters(path string) (*genex.Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameters file: %w", err)
	}
	return genex.ParseParameters(data)
}

func seedScenario(sim *genex.Simulation, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading scenario file: %w", err)
	}

	var sc scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("parsing scenario JSON: %w", err)
	}

	for _, g := range sc.Genes {
		if g.Length <= 0 {
			return fmt.Errorf("gene length must be positive, got %g", g.Length)
		}
		sim.AddGene(g.Start, g.Length)
	}
	for _, b := range sc.Biomolecules {
		switch b.Kind {
		case "ribosome":
			sim.AddRibosome(b.Position, b.ChannelLength)
		case "polymerase":
			sim.AddPolymerase(b.Position)
		case "destroyer":
			sim.AddDestroyer(b.Position, b.ChannelLength)
		default:
			return fmt.Errorf("unknown biomolecule kind %q", b.Kind)
		}
	}
	for _, s := range sc.Strands {
		if s.Length <= 0 {
			return fmt.Errorf("strand length must be positive, got %g", s.Length)
		}
		sim.SpawnStrand(s.Position, s.Length)
	}
	return nil
}

func printSummary(sim *genex.Simulation, ticks int, eventCounts map[genex.EventType]int) {
	state := sim.State()

	fmt.Printf("Simulation finished (ticks=%d, sim_time=%.2f)\n", ticks, state.Time)

	fmt.Printf("Strands: %d\n", len(state.Strands))
	for _, strand := range state.Strands {
		fmt.Printf("  %s length=%.1f ribosomes=%d synthesizing=%v destroying=%v\n",
			strand.ID, strand.Length, strand.RibosomeCount, strand.BeingSynthesized, strand.BeingDestroyed)
	}

	// Count biomolecules by kind and attachment state
	counts := make(map[string]int)
	for _, b := range state.Biomolecules {
		counts[fmt.Sprintf("%s/%s", b.Kind, b.State)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("Biomolecules:")
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}

	if len(eventCounts) > 0 {
		types := make([]string, 0, len(eventCounts))
		for et := range eventCounts {
			types = append(types, string(et))
		}
		sort.Strings(types)

		fmt.Println("Events:")
		for _, et := range types {
			fmt.Printf("  %s: %d\n", et, eventCounts[genex.EventType(et)])
		}
	}
}
