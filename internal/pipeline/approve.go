package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/stupiduntilnot/voicecursor/internal/agent"
	"github.com/stupiduntilnot/voicecursor/internal/db"
)

var ErrNoEventStore = errors.New("pipeline: no event store configured")

// ApproveAndApply writes code that a human approved out of band.
func (o *Orchestrator) ApproveAndApply(ctx context.Context, code string, opts *Options) agent.Result {
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.Normalize(); err != nil {
		return agent.Fail("Failed to apply code: "+err.Error(), nil)
	}
	res := o.validator.ApproveAndApply(ctx, code, opts)
	o.audit.LogAgentCall("", o.validator.Name(), map[string]any{
		"action":    "approve_and_apply",
		"file_path": opts.FilePath,
	}, res.Data, res.Success, res.Error, res.Metadata)
	if err := o.audit.Save(); err != nil {
		o.log.Error("save audit log", "error", err)
	}
	return res
}

// ApproveRun applies the pending change recorded for runID. opts.FilePath
// overrides the path stored with the change.
func (o *Orchestrator) ApproveRun(ctx context.Context, runID string, opts *Options) agent.Result {
	if o.events == nil {
		return agent.FailErr(ErrNoEventStore, nil)
	}
	ch, err := o.events.Change(runID)
	if err != nil {
		return agent.FailErr(fmt.Errorf("load change %s: %w", runID, err), nil)
	}
	if ch.Status != db.ChangeStatusPending && ch.Status != db.ChangeStatusApplyFailed {
		return agent.Fail(fmt.Sprintf("change %s is %s, not awaiting approval", runID, ch.Status), nil)
	}

	if opts == nil {
		opts = &Options{}
	}
	if opts.FilePath == "" && ch.FilePath.Valid {
		opts.FilePath = ch.FilePath.String
	}
	if opts.Language == "" {
		opts.Language = ch.Language
	}

	res := o.ApproveAndApply(ctx, ch.Code, opts)
	next, eventType := db.ChangeStatusApplied, db.EventChangeApplied
	if !res.Success {
		next = db.ChangeStatusApplyFailed
	}
	if _, err := o.events.TransitionChange(runID, ch.Status, next, res.Error); err != nil {
		o.log.Warn("transition change", "run_id", runID, "error", err)
	}
	if res.Success {
		o.logChangeEvent(runID, eventType, map[string]any{"run_id": runID, "file_path": opts.FilePath})
	}
	return res
}

// RejectRun marks the pending change for runID as rejected. Nothing is
// written.
func (o *Orchestrator) RejectRun(runID, reason string) error {
	if o.events == nil {
		return ErrNoEventStore
	}
	ch, err := o.events.Change(runID)
	if err != nil {
		return fmt.Errorf("load change %s: %w", runID, err)
	}
	ok, err := o.events.TransitionChange(runID, ch.Status, db.ChangeStatusRejected, reason)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("change %s changed concurrently", runID)
	}
	o.audit.LogAgentCall(runID, o.validator.Name(), map[string]any{"action": "reject"}, nil, true, "", map[string]any{"reason": reason})
	if err := o.audit.Save(); err != nil {
		o.log.Error("save audit log", "error", err)
	}
	o.logChangeEvent(runID, db.EventChangeRejected, map[string]any{"run_id": runID, "reason": reason})
	return nil
}

func (o *Orchestrator) logChangeEvent(runID, eventType string, payload map[string]any) {
	if _, err := o.events.LogEvent(nil, eventType, payload); err != nil {
		o.log.Warn("log event", "type", eventType, "run_id", runID, "error", err)
	}
}
