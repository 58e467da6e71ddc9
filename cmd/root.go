package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/gacha/internal/config"
)

func NewRootCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "gacha",
		Short: "Capsule machine widget engine with a terminal host and an HTTP backend",
		Long: `Gacha draws weighted items from a catalog folder (gacha.yaml + items.yaml),
plays a minimum-length animation while the item's image and description load,
and reveals the result.

It can pull in the terminal, serve the backend bridge and headless widget
sessions over HTTP, and simulate many draws to check a catalog's odds.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			*cfg = loaded
			slog.SetDefault(cfg.Logger(os.Stderr))
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(cfg))
	cmd.AddCommand(newPullCmd(cfg))
	cmd.AddCommand(newSimulateCmd(cfg))
	cmd.AddCommand(newValidateCmd(cfg))

	return cmd
}

// catalogFlags are shared by the commands that read a data folder
type catalogFlags struct {
	dataRoot string
	folder   string
}

func (f *catalogFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataRoot, "data-root", "", "Directory holding the gacha data folders (default $DATA_ROOT or ./gacha_data)")
	cmd.Flags().StringVar(&f.folder, "folder", "", "Data folder to use (default $GACHA_FOLDER or gacha1)")
}

func (f *catalogFlags) resolve(cfg *config.Config) {
	if f.dataRoot == "" {
		f.dataRoot = cfg.DataRoot
	}
	if f.folder == "" {
		f.folder = cfg.Folder
	}
}
