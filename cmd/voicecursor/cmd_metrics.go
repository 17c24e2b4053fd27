package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/observability"
)

func newMetricsServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "metrics-serve",
		Short: "Serve Prometheus metrics built from saved observability records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			exporter, metrics := observability.NewExporter(orDefault(addr, cfg.MetricsAddr))
			tracker, err := observability.NewTracker(cfg.ObsDir, nil, nil)
			if err != nil {
				return err
			}
			records := tracker.Records()
			metrics.Replay(records)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- exporter.Start() }()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d records on %s/metrics\n", len(records), orDefault(addr, cfg.MetricsAddr))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return exporter.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $VOICECURSOR_METRICS_ADDR)")
	return cmd
}
