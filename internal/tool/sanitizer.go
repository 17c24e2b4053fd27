package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var dangerousPatterns = []string{
	`rm\s+-rf\s+/`,
	`sudo\s+`,
	`drop\s+database`,
	`delete\s+from\s+\*`,
	`exec\s*\(`,
	`eval\s*\(`,
	`__import__`,
}

var injectionPatterns = []string{
	`ignore\s+previous\s+instructions`,
	`disregard\s+all\s+prior`,
	`system:\s+`,
	`<\|im_start\|>`,
	`<\|im_end\|>`,
}

type pattern struct {
	source string
	re     *regexp.Regexp
}

func compilePatterns(sources []string) []pattern {
	out := make([]pattern, 0, len(sources))
	for _, src := range sources {
		out = append(out, pattern{source: src, re: regexp.MustCompile(`(?i)` + src)})
	}
	return out
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Sanitizer rejects commands carrying destructive shell/database patterns
// or prompt-injection markers, and collapses whitespace in the rest.
type Sanitizer struct {
	dangerous []pattern
	injection []pattern
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		dangerous: compilePatterns(dangerousPatterns),
		injection: compilePatterns(injectionPatterns),
	}
}

func (t *Sanitizer) Name() string { return "sanitizer" }

func (t *Sanitizer) Call(ctx context.Context, input any, opts Options) Result {
	command := strings.TrimSpace(fmt.Sprint(input))
	if input == nil || command == "" {
		return Fail("Empty command")
	}

	for _, p := range t.dangerous {
		if p.re.MatchString(command) {
			return Fail("Dangerous pattern detected: " + p.source)
		}
	}
	for _, p := range t.injection {
		if p.re.MatchString(command) {
			return Fail("Potential prompt injection detected")
		}
	}

	sanitized := whitespaceRun.ReplaceAllString(command, " ")
	return OK(sanitized, map[string]any{
		"original": command,
		"modified": sanitized != command,
	})
}
