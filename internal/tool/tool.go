package tool

import "context"

// Options carries per-call parameters. Keys are tool-specific
// ("language", "temperature", "max_tokens", "sample_rate", ...).
type Options map[string]any

// String returns the string option for key, or fallback when absent.
func (o Options) String(key, fallback string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Int returns the int option for key, or fallback when absent.
func (o Options) Int(key string, fallback int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// Tool is the capability contract for one external service: a speech-to-text
// provider, a language model, a sanitizer, a formatter or a syntax checker.
// Call never panics past its boundary; internal failures come back as a
// Result with Success=false.
type Tool interface {
	Name() string
	Call(ctx context.Context, input any, opts Options) Result
}
