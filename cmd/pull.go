package cmd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/bridge"
	"github.com/lehigh-university-libraries/gacha/internal/config"
	"github.com/lehigh-university-libraries/gacha/internal/gacha"
	"github.com/lehigh-university-libraries/gacha/internal/present"
	"github.com/lehigh-university-libraries/gacha/internal/widget"
)

func newPullCmd(cfg *config.Config) *cobra.Command {
	var (
		flags        catalogFlags
		server       string
		count        int
		seed         uint64
		minAnimation time.Duration
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull the gacha in the terminal",
		Long: `Loads a catalog and pulls it in the terminal. Each pull shakes for at
least the minimum animation time while the item's image and description load,
then reveals the result.

The catalog is read from the data root directly, or from a running
"gacha serve" when --server is given.`,
		Example: `  # Pull once from ./gacha_data/gacha1
  gacha pull

  # Pull three times from a running server
  gacha pull --server http://localhost:8000 --folder gacha1 --count 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cfg)
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			if !cmd.Flags().Changed("min-animation") {
				minAnimation = cfg.MinAnimation
			}
			if minAnimation <= 0 {
				return fmt.Errorf("--min-animation must be positive")
			}

			var be bridge.Backend = backend.NewFolder(flags.dataRoot, cfg.BackendLatency)
			if server != "" {
				be = backend.NewClient(server)
			}

			var rng gacha.RNG
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(seed, seed))
			}

			w := widget.New(widget.Config{
				Folder:        flags.folder,
				MinAnimation:  minAnimation,
				BridgeTimeout: cfg.BridgeTimeout,
			}, widget.Deps{
				Backend: be,
				View:    present.NewTerminal(cmd.OutOrStdout()),
				RNG:     rng,
			})
			ctx := cmd.Context()
			w.Start(ctx)
			defer w.Close()

			if err := w.WaitReady(ctx); err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			if c, err := w.Catalog(ctx); err == nil {
				slog.Info("Catalog loaded", "folder", flags.folder, "title", c.Title, "items", len(c.Entries))
			}

			for i := range count {
				if _, err := w.PullAndWait(ctx); err != nil {
					return fmt.Errorf("pull %d failed: %w", i+1, err)
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&server, "server", "", "Base URL of a gacha server to use instead of the data root")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of pulls")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible draws")
	cmd.Flags().DurationVar(&minAnimation, "min-animation", 2*time.Second, "Minimum shake time before a reveal (default $GACHA_MIN_ANIMATION)")

	return cmd
}
