package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/gacha/internal/backend"
	"github.com/lehigh-university-libraries/gacha/internal/config"
	"github.com/lehigh-university-libraries/gacha/internal/handlers"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var (
		port     string
		dataRoot string
		latency  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gacha backend server",
		Long: `Starts the gacha HTTP server on the given port.

The server answers the bridge endpoints (/api/getGachaData, /api/getItemAsset)
from the data root, serves the raw data files under /gacha_data/, and hosts
headless widget sessions under /api/sessions.`,
		Example: `  # Start server on default port 8000
  gacha serve

  # Serve another data root with a simulated network delay
  gacha serve --data-root ./gacha_data --latency 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataRoot == "" {
				dataRoot = cfg.DataRoot
			}
			if !cmd.Flags().Changed("latency") {
				latency = cfg.BackendLatency
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			handler := handlers.New(ctx, backend.NewFolder(dataRoot, latency), handlers.Config{
				MinAnimation:  cfg.MinAnimation,
				BridgeTimeout: cfg.BridgeTimeout,
				MaxSessions:   cfg.MaxSessions,
			})
			defer handler.Close()

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Gacha server listening", "addr", addr, "url", "http://localhost"+addr, "data_root", dataRoot)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8000", "Port to listen on")
	cmd.Flags().StringVar(&dataRoot, "data-root", "", "Directory holding the gacha data folders (default $DATA_ROOT or ./gacha_data)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Simulated delay added to every bridge response (default $GACHA_BACKEND_LATENCY)")

	return cmd
}
