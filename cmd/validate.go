package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/catalog"
	"github.com/lehigh-university-libraries/gacha/internal/config"
	"github.com/lehigh-university-libraries/gacha/internal/models"
	"github.com/lehigh-university-libraries/gacha/internal/present"
)

func newValidateCmd(cfg *config.Config) *cobra.Command {
	var flags catalogFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a catalog folder and show its odds",
		Long: `Reads gacha.yaml and items.yaml from a data folder, validates every
record, and prints the entries with their draw probability and the grade
promotion rules.`,
		Example: `  gacha validate --data-root ./gacha_data --folder gacha1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cfg)

			c, err := loadCatalog(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), present.CatalogTable(c))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// loadCatalog reads and parses a catalog straight from disk
func loadCatalog(ctx context.Context, flags catalogFlags) (models.Catalog, error) {
	payload, err := backend.NewFolder(flags.dataRoot, 0).FetchCatalog(ctx, flags.folder)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := catalog.Parse(payload)
	if err != nil {
		return models.Catalog{}, err
	}
	return c, nil
}
