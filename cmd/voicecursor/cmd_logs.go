package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/audit"
	"github.com/stupiduntilnot/voicecursor/internal/config"
)

func newLogsCmd() *cobra.Command {
	var (
		file    string
		list    bool
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show agent call logs",
		Long: `Logs prints the entries of the latest JSON audit log, or of --file.
--summary prints one row per agent call and --list lists every log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			files, err := audit.ListLogs(cfg.LogDir)
			if err != nil {
				return fmt.Errorf("list logs: %w", err)
			}
			if list {
				if len(files) == 0 {
					fmt.Fprintln(out, warningStyle.Render("No log files found in "+cfg.LogDir))
					return nil
				}
				renderLogList(out, files)
				return nil
			}

			path := file
			if path == "" {
				if len(files) == 0 {
					fmt.Fprintln(out, warningStyle.Render("No log files found. Run `voicecursor run` first."))
					return nil
				}
				path = files[0].Path
			} else if filepath.Dir(path) == "." {
				path = filepath.Join(cfg.LogDir, path)
			}

			records, err := audit.LoadJSON(path)
			if err != nil {
				return err
			}
			if summary {
				renderLogSummary(out, filepath.Base(path), records)
			} else {
				renderLogEntries(out, filepath.Base(path), records)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&file, "file", "", "JSON log to show (name inside the log dir, or a path)")
	fl.BoolVar(&list, "list", false, "List available logs")
	fl.BoolVar(&summary, "summary", false, "Show a summary table of agent calls")
	return cmd
}
