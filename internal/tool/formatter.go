package tool

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"os/exec"
	"strings"
	"time"
)

// Formatter pipes generated code through an external formatter command
// (for example "black -q -" or "prettier --stdin-filepath x.ts"). With no
// command configured, Go code is formatted in-process and other languages
// pass through unchanged.
type Formatter struct {
	// Commands maps a language to a shell command reading code on stdin
	// and writing formatted code to stdout.
	Commands map[string]string
	Timeout  time.Duration
	Limits   Limits
}

func NewFormatter(commands map[string]string, timeout time.Duration, limits Limits) *Formatter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if limits.MaxLines <= 0 {
		limits.MaxLines = 2000
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = 51200
	}
	if commands == nil {
		commands = map[string]string{}
	}
	return &Formatter{
		Commands: commands,
		Timeout:  timeout,
		Limits:   limits,
	}
}

func (t *Formatter) Name() string { return "formatter" }

func (t *Formatter) Call(ctx context.Context, input any, opts Options) Result {
	code, ok := input.(string)
	if !ok {
		return Fail(fmt.Sprintf("formatter expects string input, got %T", input))
	}
	language := strings.ToLower(opts.String("language", ""))

	command := strings.TrimSpace(t.Commands[language])
	if command == "" {
		if language == "go" {
			out, err := format.Source([]byte(code))
			if err != nil {
				return Fail(fmt.Sprintf("gofmt failed: %v", err))
			}
			return OK(string(out), map[string]any{"formatter": "gofmt", "formatted": true})
		}
		return OK(code, map[string]any{"formatter": "none", "formatted": false})
	}

	toolCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(toolCtx, "sh", "-c", command)
	cmd.Stdin = strings.NewReader(code)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		exitCode := 1
		if ee, ok := runErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		res := Fail(fmt.Sprintf("formatter %q failed: %v: %s", command, runErr, strings.TrimSpace(t.Limits.Clip(stderr.String()))))
		res.Metadata["exit_code"] = exitCode
		return res
	}
	if strings.TrimSpace(stdout.String()) == "" {
		return Fail(fmt.Sprintf("formatter %q produced no output", command))
	}
	if over := t.Limits.Exceeds(stdout.String()); over != "" {
		return Fail(fmt.Sprintf("formatter %q output exceeds the %s limit", command, over))
	}
	return OK(stdout.String(), map[string]any{"formatter": command, "formatted": true})
}
