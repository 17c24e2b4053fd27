package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

// CodeArtifact is the generated source handed to the validator.
type CodeArtifact struct {
	Code              string `json:"code"`
	Language          string `json:"language"`
	Command           string `json:"command"`
	SuggestedFilename string `json:"suggested_filename"`
}

// Coder turns a Plan into source code with tools[0]. When tools[1] is
// present it is used as a formatter and its output replaces the code.
type Coder struct{ base }

func NewCoder() *Coder {
	return &Coder{base: newBase("Coder Agent", "Generates code from execution plan", "coder")}
}

func (a *Coder) Execute(ctx context.Context, input any, opts *Options) (res Result) {
	defer guard(&res, "Coder agent error")

	var plan Plan
	switch p := input.(type) {
	case Plan:
		plan = p
	case *Plan:
		if p == nil {
			return FailErr(errorf(ErrInvalidInput, "Invalid input format (expected plan with steps)"), nil)
		}
		plan = *p
	default:
		return FailErr(errorf(ErrInvalidInput, "Invalid input format (expected plan with steps)"), nil)
	}
	if len(a.tools) == 0 {
		return FailErr(errorf(ErrNoTool, "No code generation tool configured"), nil)
	}

	language := opts.language()
	codegen := a.tools[0]
	out := a.call(ctx, 0, codegenPrompt(plan, language, opts.existingCode()), nil)
	if !out.Success {
		return Fail("Code generation failed: "+out.Error, nil)
	}
	code := ExtractCode(out.OutputString(), language)

	formatted := false
	if len(a.tools) > 1 {
		fmtRes := a.call(ctx, 1, code, tool.Options{"language": language})
		if fmtRes.Success {
			code = fmtRes.OutputString()
			formatted = true
		} else {
			a.log.Debug("formatter failed, keeping unformatted code", "error", fmtRes.Error)
		}
	}

	artifact := CodeArtifact{
		Code:              code,
		Language:          language,
		Command:           plan.Command,
		SuggestedFilename: SuggestFilename(plan.Command, language),
	}
	return Succeed(artifact, map[string]any{
		"agent":     a.name,
		"tool_used": codegen.Name(),
		"formatted": formatted,
	})
}

func codegenPrompt(plan Plan, language, existingCode string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s programmer. Generate ONLY working, production-ready code.\n\n", language)
	fmt.Fprintf(&b, "User Request: %s\n\n", plan.Command)
	if len(plan.Steps) > 0 {
		b.WriteString("Implementation Plan:\n")
		for i, step := range plan.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}
	if existingCode != "" {
		fmt.Fprintf(&b, "Existing Code to Modify:\n%s\n\n", existingCode)
	}
	fmt.Fprintf(&b, "Generate complete, working %s code that:\n", language)
	b.WriteString("- Implements the exact user request\n")
	b.WriteString("- Includes all necessary imports\n")
	b.WriteString("- Has proper error handling\n")
	b.WriteString("- Includes clear docstrings/comments\n")
	fmt.Fprintf(&b, "- Uses best practices for %s\n", language)
	b.WriteString("- Is ready to run without modifications\n\n")
	b.WriteString("IMPORTANT: Return ONLY the code, no explanations, no markdown formatting, just pure code.")
	return b.String()
}
