package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

// Security validates and sanitizes the transcript. With no sanitizer tool it
// falls back to an inline keyword blocklist; it fails closed either way.
type Security struct {
	base
	fallback *tool.Policy
}

func NewSecurity() *Security {
	return &Security{
		base:     newBase("Security Agent", "Validates and sanitizes user commands", "security"),
		fallback: &tool.Policy{Blocked: tool.DefaultBlockedPhrases},
	}
}

func (a *Security) Execute(ctx context.Context, input any, opts *Options) (res Result) {
	defer guard(&res, "Security agent error")

	command := strings.TrimSpace(stringify(input))
	if command == "" {
		return FailErr(errorf(ErrInvalidInput, "Empty command"), nil)
	}

	var sanitized string
	if len(a.tools) > 0 {
		out := a.call(ctx, 0, command, nil)
		if !out.Success {
			a.log.Warn("command rejected", "reason", out.Error)
			return Fail("Command rejected: "+out.Error, map[string]any{"original_command": command})
		}
		sanitized = out.OutputString()
	} else {
		var err error
		sanitized, err = a.basicSanitize(command)
		if err != nil {
			a.log.Warn("command rejected by blocklist", "error", err)
			return Fail("Security agent error: "+err.Error(), map[string]any{"original_command": command})
		}
	}

	return Succeed(sanitized, map[string]any{
		"agent":            a.name,
		"original_command": command,
		"sanitized":        sanitized != command,
	})
}

func (a *Security) basicSanitize(command string) (string, error) {
	if kw, ok := a.fallback.Screen(command); ok {
		return "", fmt.Errorf("Dangerous keyword detected: %s", kw)
	}
	return command, nil
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}
