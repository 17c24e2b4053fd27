package tool

import (
	"context"
	"fmt"
	"time"
)

// Observer receives one notification per tool call made through Run.
type Observer interface {
	ObserveTool(name string, input any, res Result, latency time.Duration)
}

type observerKey struct{}

// WithObserver attaches obs to ctx. Each pipeline run attaches its own
// observer, so concurrent runs never see each other's tool calls.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

func observerFrom(ctx context.Context) Observer {
	obs, _ := ctx.Value(observerKey{}).(Observer)
	return obs
}

// Run invokes t, converts a panic into a failed Result, stamps
// latency_ms into the metadata and reports the call to the observer
// attached to ctx, if any.
func Run(ctx context.Context, t Tool, input any, opts Options) (res Result) {
	if t == nil {
		return Fail("tool is nil")
	}
	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = Fail(fmt.Sprintf("%s panicked: %v", t.Name(), p))
		}
		if res.Metadata == nil {
			res.Metadata = map[string]any{}
		}
		latency := time.Since(started)
		if _, ok := res.Metadata["latency_ms"]; !ok {
			res.Metadata["latency_ms"] = float64(latency.Microseconds()) / 1000
		}
		if obs := observerFrom(ctx); obs != nil {
			obs.ObserveTool(t.Name(), input, res, latency)
		}
	}()
	return t.Call(ctx, input, opts)
}
