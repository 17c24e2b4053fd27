package tool

// Result is the uniform envelope returned by every tool call.
// When Success is false, Output is not load-bearing.
type Result struct {
	Success  bool           `json:"success"`
	Output   any            `json:"output"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

// OK builds a successful result. Metadata is never nil.
func OK(output any, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{Success: true, Output: output, Metadata: metadata}
}

// Fail builds a failed result carrying msg.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg, Metadata: map[string]any{}}
}

// OutputString returns Output as a string, or "" if it is not one.
func (r Result) OutputString() string {
	s, _ := r.Output.(string)
	return s
}

// Meta returns r.Metadata[key], tolerating a nil map.
func (r Result) Meta(key string) (any, bool) {
	if r.Metadata == nil {
		return nil, false
	}
	v, ok := r.Metadata[key]
	return v, ok
}
