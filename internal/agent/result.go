package agent

import "time"

// Result is the envelope every agent returns. Data holds the stage output
// (a transcript string, a Plan, a CodeArtifact or a ValidationOutcome).
type Result struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`

	err error
}

// Succeed builds a successful result stamped with the current time.
func Succeed(data any, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{Success: true, Data: data, Metadata: metadata, Timestamp: time.Now()}
}

// Fail builds a failed result carrying msg.
func Fail(msg string, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{Success: false, Error: msg, Metadata: metadata, Timestamp: time.Now()}
}

// FailErr is Fail(err.Error()) that keeps err for errors.Is checks.
func FailErr(err error, metadata map[string]any) Result {
	res := Fail(err.Error(), metadata)
	res.err = err
	return res
}

// Err returns the error a failed result was built from, if any.
func (r Result) Err() error { return r.err }
