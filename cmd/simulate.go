package cmd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/gacha/internal/config"
	"github.com/lehigh-university-libraries/gacha/internal/simulate"
)

func newSimulateCmd(cfg *config.Config) *cobra.Command {
	var (
		flags   catalogFlags
		pulls   int
		seed    uint64
		output  string
		summary string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Draw a catalog many times and compare the odds",
		Long: `Runs the weighted draw and the grade promotion chain offline, then prints
how often each item came up next to its configured share of the total weight.

Every draw can be exported to a parquet file for further analysis, and the
summary can be saved as YAML.`,
		Example: `  # 100k draws from gacha1
  gacha simulate --pulls 100000

  # Reproducible run with exports
  gacha simulate --seed 42 --output draws.parquet --summary summary.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cfg)
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			catalog, err := loadCatalog(cmd.Context(), flags)
			if err != nil {
				return err
			}

			report, draws, err := simulate.Run(catalog, pulls, rand.New(rand.NewPCG(seed, seed)))
			if err != nil {
				return err
			}
			report.Seed = seed
			report.Print(cmd.OutOrStdout())

			if output != "" {
				if err := simulate.WriteParquet(output, draws); err != nil {
					return err
				}
				absPath, _ := filepath.Abs(output)
				fmt.Fprintf(cmd.OutOrStdout(), "\nDraws saved to: %s\n", absPath)
			}
			if summary != "" {
				if err := simulate.SaveYAML(summary, report); err != nil {
					return err
				}
				absPath, _ := filepath.Abs(summary)
				fmt.Fprintf(cmd.OutOrStdout(), "Summary saved to: %s\n", absPath)
			}

			slog.Debug("Simulation complete", "folder", flags.folder, "pulls", pulls, "seed", seed)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&pulls, "pulls", "n", 10000, "Number of draws")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible draws (default random)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write every draw to this parquet file")
	cmd.Flags().StringVar(&summary, "summary", "", "Write the summary to this YAML file")

	return cmd
}
