package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/observability"
)

func newStatsCmd() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded requests: tokens, cost and latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			pricing := observability.DefaultPricing()
			if cfg.PricingFile != "" {
				if pricing, err = observability.LoadPricing(cfg.PricingFile); err != nil {
					return err
				}
			}
			tracker, err := observability.NewTracker(cfg.ObsDir, pricing, nil)
			if err != nil {
				return err
			}

			records := tracker.Records()
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"summary": tracker.Summary(),
					"recent":  records,
				})
			}
			renderSummary(out, tracker.Summary())
			renderRecords(out, records)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recent requests to list (0 = all loaded)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
