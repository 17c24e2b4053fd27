package agent

import (
	"context"
	"fmt"
	"strings"
)

// Reasoning breaks a sanitized command into implementation steps, using
// tools[0] when present and SimplePlan otherwise.
type Reasoning struct{ base }

func NewReasoning() *Reasoning {
	return &Reasoning{base: newBase("Reasoning Agent", "Plans execution steps from natural language", "reasoning")}
}

func (a *Reasoning) Execute(ctx context.Context, input any, opts *Options) (res Result) {
	defer guard(&res, "Reasoning agent error")

	command := strings.TrimSpace(stringify(input))

	var steps []string
	method := "simple"
	if len(a.tools) == 0 {
		steps = SimplePlan(command)
	} else {
		method = "llm"
		out := a.call(ctx, 0, planningPrompt(command, opts.language(), opts.existingCode()), nil)
		if !out.Success {
			return Fail("Planning failed: "+out.Error, nil)
		}
		steps = ParsePlan(out.OutputString())
	}
	a.log.Debug("plan ready", "method", method, "steps", len(steps))

	return Succeed(NewPlan(command, steps), map[string]any{
		"agent":           a.name,
		"planning_method": method,
	})
}

func planningPrompt(command, language, existingCode string) string {
	var b strings.Builder
	b.WriteString("You are an expert software architect. Analyze this coding request and create a clear implementation plan.\n\n")
	fmt.Fprintf(&b, "User Request: %s\n\n", command)
	fmt.Fprintf(&b, "Language: %s\n", language)
	if existingCode != "" {
		fmt.Fprintf(&b, "Existing Code: %s\n", existingCode)
	}
	b.WriteString("\nCreate a concise, numbered list of 4-8 specific implementation steps. Be technical and actionable.\n")
	b.WriteString("Focus on WHAT needs to be done, not HOW (the coder will handle the HOW).\n\n")
	b.WriteString("Example format:\n1. [Specific step]\n2. [Specific step]\n...\n\nSteps:")
	return b.String()
}
