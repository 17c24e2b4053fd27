// Package agent implements the five pipeline stages. Each agent wraps an
// ordered list of tools (tools[0] primary, the rest secondary) and turns
// their results into an agent Result.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stupiduntilnot/voicecursor/internal/logging"
	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

var (
	ErrNoTool       = errors.New("no tool configured")
	ErrInvalidInput = errors.New("invalid input")
)

// Agent fulfills one pipeline stage.
type Agent interface {
	Name() string
	Execute(ctx context.Context, input any, opts *Options) Result
}

// kindError keeps the user-facing message intact while still matching a
// sentinel through errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func errorf(kind error, format string, args ...any) error {
	return &kindError{msg: fmt.Sprintf(format, args...), kind: kind}
}

type base struct {
	name        string
	description string
	tools       []tool.Tool
	log         *slog.Logger
}

func newBase(name, description, component string) base {
	return base{name: name, description: description, log: logging.New(component)}
}

func (b *base) Name() string        { return b.name }
func (b *base) Description() string { return b.description }

// AddTool appends t to the agent's tool list.
func (b *base) AddTool(t tool.Tool) {
	if t != nil {
		b.tools = append(b.tools, t)
	}
}

// Tools returns a copy of the configured tools in call order.
func (b *base) Tools() []tool.Tool {
	return append([]tool.Tool(nil), b.tools...)
}

func (b *base) call(ctx context.Context, i int, input any, opts tool.Options) tool.Result {
	return tool.Run(ctx, b.tools[i], input, opts)
}

// guard converts a panic inside Execute into a failed result. It must be
// deferred with a pointer to the named result.
func guard(res *Result, prefix string) {
	if p := recover(); p != nil {
		*res = Fail(fmt.Sprintf("%s: %v", prefix, p), nil)
	}
}
