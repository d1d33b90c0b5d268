package main

import (
	"math/rand"
	"os"

	"github.com/gcforge/handlekit/internal/gcsim"
	"github.com/gcforge/handlekit/pkg/diag"
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots"
	"github.com/spf13/cobra"
)

func init() {
	cmd := newCensusCmd()
	cmd.Flags().IntVar(&simHeaps, "heaps", 4, "Number of heaps (and scan workers)")
	cmd.Flags().IntVar(&simHandles, "handles", 10_000, "Handles to allocate")
	cmd.Flags().IntVar(&simBuckets, "buckets", 3, "Handle-table buckets to create")
	cmd.Flags().IntVar(&simMaxGen, "max-gen", 2, "Oldest generation")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Deterministic population seed")
	rootCmd.AddCommand(cmd)
}

func newCensusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "census",
		Short: "Print the handle population by type",
		Long: `The census command allocates a seeded handle population and prints the
live-handle counts per type, without running a collection.

Example:
  handlectl census --handles 50000
  handlectl census --seed 42 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCensus()
		},
	}
}

func runCensus() error {
	eng := gcsim.NewEngine(simHeaps)
	sub, err := roots.Initialize(roots.Config{
		MultiHeap: simHeaps > 1,
		HeapCount: simHeaps,
		Collector: eng,
		Runtime:   eng,
	})
	if err != nil {
		return err
	}
	defer sub.Shutdown()

	rng := rand.New(rand.NewSource(simSeed))
	if err := populate(sub, eng, rng); err != nil {
		return err
	}

	census := sub.Census()
	if jsonOut {
		out := make(map[string]int, gc.TypeCount)
		for t := gc.Type(0); t < gc.TypeCount; t++ {
			if census[t] > 0 {
				out[t.String()] = census[t]
			}
		}
		return printJSON(out)
	}
	return diag.WriteCensus(os.Stdout, census)
}
