package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

const (
	StatusPendingApproval = "pending_approval"
	StatusApplied         = "applied"
)

// ValidationOutcome is the validator's output: either code awaiting human
// approval or code already written to FilePath.
type ValidationOutcome struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Diff         string `json:"diff"`
	FilePath     string `json:"file_path,omitempty"`
	Command      string `json:"command,omitempty"`
	Language     string `json:"language,omitempty"`
	AutoApproved bool   `json:"auto_approved,omitempty"`
}

// Validator checks generated code and gates the write behind approval.
// Only tools whose name mentions "validator" or "syntax" are run.
type Validator struct{ base }

func NewValidator() *Validator {
	return &Validator{base: newBase("Validator Agent", "Validates code and manages approval workflow", "validator")}
}

func (a *Validator) Execute(ctx context.Context, input any, opts *Options) (res Result) {
	defer guard(&res, "Validator agent error")

	var artifact CodeArtifact
	switch in := input.(type) {
	case CodeArtifact:
		artifact = in
	case *CodeArtifact:
		if in == nil {
			return FailErr(errorf(ErrInvalidInput, "Invalid input format (expected code artifact)"), nil)
		}
		artifact = *in
	default:
		return FailErr(errorf(ErrInvalidInput, "Invalid input format (expected code artifact)"), nil)
	}
	language := artifact.Language
	if language == "" {
		language = opts.language()
	}

	var problems []string
	for i, t := range a.tools {
		name := strings.ToLower(t.Name())
		if !strings.Contains(name, "validator") && !strings.Contains(name, "syntax") {
			continue
		}
		out := a.call(ctx, i, artifact.Code, tool.Options{"language": language})
		if !out.Success {
			problems = append(problems, out.Error)
		}
	}
	if len(problems) > 0 {
		return Fail("Validation failed: "+strings.Join(problems, "; "), map[string]any{
			"validation_errors": problems,
		})
	}

	outcome := ValidationOutcome{
		Code:     artifact.Code,
		Diff:     DiffPreview(opts.existingCode(), artifact.Code),
		Command:  artifact.Command,
		Language: language,
	}
	if opts.ApprovalRequired() {
		outcome.Status = StatusPendingApproval
		return Succeed(outcome, map[string]any{
			"agent":             a.name,
			"requires_approval": true,
			"validated":         true,
		})
	}

	a.log.Warn("auto-approve enabled, writing without human review", "file_path", opts.FilePath)
	path, err := a.apply(artifact.Code, opts)
	if err != nil {
		return Fail("Failed to apply code: "+err.Error(), map[string]any{"agent": a.name, "applied": false})
	}
	outcome.Status = StatusApplied
	outcome.FilePath = path
	outcome.AutoApproved = true
	return Succeed(outcome, map[string]any{
		"agent":   a.name,
		"applied": true,
	})
}

// ApproveAndApply writes code after out-of-band human approval. Write
// errors are reported in the result.
func (a *Validator) ApproveAndApply(ctx context.Context, code string, opts *Options) (res Result) {
	defer guard(&res, "Failed to apply code")

	if err := ctx.Err(); err != nil {
		return Fail("Failed to apply code: "+err.Error(), map[string]any{"agent": a.name})
	}
	path, err := a.apply(code, opts)
	if err != nil {
		a.log.Error("apply failed", "file_path", opts.FilePath, "error", err)
		return Fail("Failed to apply code: "+err.Error(), map[string]any{"agent": a.name})
	}
	a.log.Info("code applied", "file_path", path)
	return Succeed(ValidationOutcome{Status: StatusApplied, Code: code, FilePath: path}, map[string]any{
		"agent": a.name,
	})
}

// apply writes code to opts.FilePath and returns the path written. With no
// FilePath nothing is written. With a WorkspacePath the target must resolve
// inside it.
func (a *Validator) apply(code string, opts *Options) (string, error) {
	if opts == nil || opts.FilePath == "" {
		return "", nil
	}
	policy, err := tool.NewPolicy(opts.WorkspacePath, nil)
	if err != nil {
		return "", err
	}
	path, err := policy.TargetPath(opts.FilePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// DiffPreview summarizes the change. For modified code the line-count header
// is followed by a unified diff.
func DiffPreview(existing, code string) string {
	if existing == "" {
		return fmt.Sprintf("+ New code (%d lines)", countLines(code))
	}
	header := fmt.Sprintf("~ Modified code\n  - %d lines\n  + %d lines", countLines(existing), countLines(code))
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(existing),
		B:        difflib.SplitLines(code),
		FromFile: "existing",
		ToFile:   "generated",
		Context:  3,
	})
	if err != nil || diff == "" {
		return header
	}
	return header + "\n" + strings.TrimRight(diff, "\n")
}

// countLines matches str.splitlines: a trailing newline does not start a
// new line and the empty string has none.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
