package agent

import (
	"regexp"
	"strings"
	"unicode"
)

// Plan is the ordered list of implementation steps for a command.
type Plan struct {
	Command   string   `json:"command"`
	Steps     []string `json:"steps"`
	StepCount int      `json:"step_count"`
}

func NewPlan(command string, steps []string) Plan {
	return Plan{Command: command, Steps: steps, StepCount: len(steps)}
}

var (
	functionTemplate = []string{
		"Define function signature",
		"Implement function body",
		"Add error handling",
		"Add docstring",
	}
	classTemplate = []string{
		"Define class structure",
		"Add __init__ method",
		"Implement class methods",
		"Add docstrings",
	}
	genericTemplate = []string{
		"Analyze command intent",
		"Generate appropriate code",
		"Add necessary imports",
		"Format and validate",
	}
)

var defKeyword = regexp.MustCompile(`\bdef\b`)

// SimplePlan is the rule-based planner used when no model is configured.
// "function" is a substring match, "def" must stand alone so that words
// like "define" fall through to the class check.
func SimplePlan(command string) []string {
	lower := strings.ToLower(command)
	var steps []string
	switch {
	case strings.Contains(lower, "function") || defKeyword.MatchString(lower):
		steps = functionTemplate
	case strings.Contains(lower, "class"):
		steps = classTemplate
	default:
		steps = genericTemplate
	}
	return append([]string(nil), steps...)
}

// ParsePlan extracts numbered or bulleted lines from model output. Output
// with no such lines becomes a single step holding the whole text.
func ParsePlan(output string) []string {
	var steps []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if !isStepLine(line) {
			continue
		}
		step := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-•) "))
		if step != "" {
			steps = append(steps, step)
		}
	}
	if len(steps) == 0 {
		return []string{strings.TrimSpace(output)}
	}
	return steps
}

func isStepLine(line string) bool {
	if line == "" {
		return false
	}
	r := []rune(line)[0]
	return unicode.IsDigit(r) || r == '-' || r == '•'
}
