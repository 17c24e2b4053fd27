package pipeline

import (
	"time"

	"github.com/stupiduntilnot/voicecursor/internal/db"
	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

// observers fans one tool notification out to several observers.
type observers []tool.Observer

func (m observers) ObserveTool(name string, input any, res tool.Result, latency time.Duration) {
	for _, obs := range m {
		if obs != nil {
			obs.ObserveTool(name, input, res, latency)
		}
	}
}

// toolAuditor writes each tool call of a run to the audit log and queues
// it for the event sink.
type toolAuditor struct {
	o *Orchestrator
	r *run
}

func (a *toolAuditor) ObserveTool(name string, input any, res tool.Result, latency time.Duration) {
	a.o.audit.LogToolCall(a.r.id, name, input, res.Output, res.Success, res.Error, res.Metadata)

	eventType := db.EventToolCallDone
	if !res.Success {
		eventType = db.EventToolCallFailed
	}
	if a.o.events == nil {
		return
	}
	a.r.pendingTools = append(a.r.pendingTools, pendingEvent{eventType: eventType, payload: map[string]any{
		"run_id":     a.r.id,
		"stage":      a.r.stage,
		"tool":       name,
		"latency_ms": latency.Milliseconds(),
		"error":      res.Error,
	}})
}
