package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/agent"
	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/pipeline"
)

func newApproveCmd() *cobra.Command {
	var (
		codeFile  string
		filePath  string
		runID     string
		language  string
		workspace string
	)
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Write reviewed code to disk",
		Long: `Approve writes code after human review. Pass --code and --file to apply a
reviewed file, or --run to apply the pending change recorded in the audit
database for that run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID == "" && (codeFile == "" || filePath == "") {
				return errors.New("approve needs --run, or both --code and --file")
			}
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, pipeline.Tools{})
			if err != nil {
				return err
			}
			defer a.close(ctx)

			opts := &pipeline.Options{
				Language:      language,
				FilePath:      filePath,
				WorkspacePath: orDefault(workspace, cfg.WorkspaceDir),
			}
			var res agent.Result
			if runID != "" {
				if a.store == nil {
					return errors.New("approve --run needs VOICECURSOR_AUDIT_DB")
				}
				res = a.orch.ApproveRun(ctx, runID, opts)
			} else {
				code, err := os.ReadFile(codeFile)
				if err != nil {
					return fmt.Errorf("read code: %w", err)
				}
				res = a.orch.ApproveAndApply(ctx, string(code), opts)
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			outcome, _ := res.Data.(agent.ValidationOutcome)
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ applied to "+outcome.FilePath))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&codeFile, "code", "", "File holding the reviewed code")
	fl.StringVar(&filePath, "file", "", "Destination path")
	fl.StringVar(&runID, "run", "", "Run ID whose pending change should be applied")
	fl.StringVar(&language, "language", "", "Language of the code")
	fl.StringVar(&workspace, "workspace", "", "Restrict writes to this directory")
	cmd.MarkFlagsMutuallyExclusive("run", "code")
	return cmd
}

func newRejectCmd() *cobra.Command {
	var runID, reason string
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Discard the pending change of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			if cfg.AuditDBPath == "" {
				return errors.New("reject needs VOICECURSOR_AUDIT_DB")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, pipeline.Tools{})
			if err != nil {
				return err
			}
			defer a.close(ctx)
			if err := a.orch.RejectRun(runID, reason); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), warningStyle.Render("Change for run "+runID+" rejected"))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the change was rejected")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
