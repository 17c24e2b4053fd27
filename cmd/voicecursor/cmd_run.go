package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/agent"
	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/pipeline"
)

type runFlags struct {
	text        string
	audio       string
	language    string
	file        string
	existing    string
	workspace   string
	autoApprove bool
	approve     bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [request...]",
		Short: "Run a spoken or typed request through the pipeline",
		Long: `Run sends a request through speech, security, reasoning, coding and
validation. Generated code is held for approval unless --auto-approve is set.
With --approve the command asks for confirmation before writing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.text, "text", "", "Request text (defaults to the positional arguments)")
	fl.StringVar(&f.audio, "audio", "", "Audio file to transcribe")
	fl.StringVar(&f.language, "language", "", "Target programming language (default $VOICECURSOR_LANGUAGE)")
	fl.StringVar(&f.file, "file", "", "Path the approved code is written to")
	fl.StringVar(&f.existing, "existing", "", "File holding the code being modified")
	fl.StringVar(&f.workspace, "workspace", "", "Restrict writes to this directory (default $VOICECURSOR_WORKSPACE)")
	fl.BoolVar(&f.autoApprove, "auto-approve", false, "Write without human review (not recommended)")
	fl.BoolVar(&f.approve, "approve", false, "Ask for confirmation and write the code when approved")
	cmd.MarkFlagsMutuallyExclusive("text", "audio")
	cmd.MarkFlagsMutuallyExclusive("auto-approve", "approve")
	return cmd
}

func runPipeline(cmd *cobra.Command, f runFlags, args []string) error {
	input, err := readRunInput(f, args)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	tools, err := buildTools(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, tools)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	opts := &pipeline.Options{
		Language:        orDefault(f.language, cfg.Language),
		FilePath:        f.file,
		WorkspacePath:   orDefault(f.workspace, cfg.WorkspaceDir),
		RequireApproval: agent.Bool(cfg.RequireApproval && !f.autoApprove),
	}
	if f.existing != "" {
		raw, err := os.ReadFile(f.existing)
		if err != nil {
			return fmt.Errorf("read existing code: %w", err)
		}
		opts.ExistingCode = string(raw)
	}
	if f.audio != "" {
		opts.Set("filename", filepath.Base(f.audio))
	}
	if cfg.STTLanguage != "" {
		opts.Set("language_code", cfg.STTLanguage)
	}

	out := cmd.OutOrStdout()
	res := a.orch.Execute(ctx, input, opts)
	renderResult(out, res)
	if !res.Success {
		return fmt.Errorf("pipeline failed at %s stage", res.Stage)
	}

	outcome, _ := res.Data.(agent.ValidationOutcome)
	if !f.approve || outcome.Status != agent.StatusPendingApproval {
		return nil
	}
	runID, _ := res.Metadata["run_id"].(string)
	if opts.FilePath == "" {
		if artifact, ok := res.Metadata["code"].(agent.CodeArtifact); ok {
			opts.FilePath = artifact.SuggestedFilename
		}
	}
	return confirmAndApply(cmd, a, runID, outcome.Code, opts)
}

func confirmAndApply(cmd *cobra.Command, a *app, runID, code string, opts *pipeline.Options) error {
	out := cmd.OutOrStdout()
	ok, err := confirm(cmd.InOrStdin(), out, fmt.Sprintf("Apply changes to %s? [y/N] ", opts.FilePath))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !ok {
		if a.store != nil {
			if err := a.orch.RejectRun(runID, "declined at prompt"); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, warningStyle.Render("Changes not applied"))
		return nil
	}

	var res agent.Result
	if a.store != nil {
		res = a.orch.ApproveRun(ctx, runID, opts)
	} else {
		res = a.orch.ApproveAndApply(ctx, code, opts)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	applied, _ := res.Data.(agent.ValidationOutcome)
	fmt.Fprintln(out, successStyle.Render("✓ applied to "+applied.FilePath))
	return nil
}

func readRunInput(f runFlags, args []string) (any, error) {
	if f.audio != "" {
		raw, err := os.ReadFile(f.audio)
		if err != nil {
			return nil, fmt.Errorf("read audio: %w", err)
		}
		return raw, nil
	}
	text := f.text
	if text == "" {
		text = strings.Join(args, " ")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("provide a request with --text, --audio or positional arguments")
	}
	return text, nil
}

// confirm reads one line from in. Only y or yes (any case) counts as consent.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
