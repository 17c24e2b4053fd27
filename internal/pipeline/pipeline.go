// Package pipeline runs the five voice-to-code stages in order: speech,
// security, reasoning, coding and validation. A run stops at the first
// failing stage and reports that stage's name.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stupiduntilnot/voicecursor/internal/agent"
	"github.com/stupiduntilnot/voicecursor/internal/audit"
	"github.com/stupiduntilnot/voicecursor/internal/db"
	"github.com/stupiduntilnot/voicecursor/internal/logging"
	"github.com/stupiduntilnot/voicecursor/internal/observability"
	"github.com/stupiduntilnot/voicecursor/internal/telemetry"
	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

const (
	StageSpeech     = "speech"
	StageSecurity   = "security"
	StageReasoning  = "reasoning"
	StageCoding     = "coding"
	StageValidation = "validation"
	StageComplete   = "complete"
)

// Options is the per-run context shared with the agents.
type Options = agent.Options

// Result is the outcome of one pipeline run. Stage names the stage that
// failed, or StageComplete.
type Result struct {
	Success  bool
	Stage    string
	Data     any
	Error    string
	Metadata map[string]any
}

// EventSink mirrors run progress into an event store. *db.Store implements it.
type EventSink interface {
	LogEvent(parentID *int64, eventType string, payload map[string]any) (int64, error)
	RecordChange(runID, command, language, filePath, code, status string) error
	Change(runID string) (*db.Change, error)
	TransitionChange(runID, fromStatus, toStatus, lastError string) (bool, error)
}

// Tools are the tools handed to each agent. Nil tools are skipped, which
// selects each agent's no-tool behavior.
type Tools struct {
	STT       tool.Tool
	Sanitizer tool.Tool
	Planner   tool.Tool
	Generator tool.Tool
	Formatter tool.Tool
	Checkers  []tool.Tool
}

// Deps configures an Orchestrator. Audit and Tracker are required.
type Deps struct {
	Tools   Tools
	Audit   *audit.Logger
	Tracker *observability.Tracker
	Events  EventSink
	Tracer  trace.Tracer
}

type Orchestrator struct {
	speech    *agent.Speech
	security  *agent.Security
	reasoning *agent.Reasoning
	coder     *agent.Coder
	validator *agent.Validator

	audit   *audit.Logger
	tracker *observability.Tracker
	events  EventSink
	tracer  trace.Tracer
	log     *slog.Logger
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Audit == nil {
		return nil, errors.New("pipeline: audit logger is required")
	}
	if deps.Tracker == nil {
		return nil, errors.New("pipeline: tracker is required")
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer(nil)
	}

	o := &Orchestrator{
		speech:    agent.NewSpeech(),
		security:  agent.NewSecurity(),
		reasoning: agent.NewReasoning(),
		coder:     agent.NewCoder(),
		validator: agent.NewValidator(),
		audit:     deps.Audit,
		tracker:   deps.Tracker,
		events:    deps.Events,
		tracer:    deps.Tracer,
		log:       logging.New("pipeline"),
	}
	o.speech.AddTool(deps.Tools.STT)
	o.security.AddTool(deps.Tools.Sanitizer)
	o.reasoning.AddTool(deps.Tools.Planner)
	o.coder.AddTool(deps.Tools.Generator)
	if deps.Tools.Generator != nil {
		o.coder.AddTool(deps.Tools.Formatter)
	}
	for _, c := range deps.Tools.Checkers {
		o.validator.AddTool(c)
	}
	return o, nil
}

// Agents returns the stage agents in execution order.
func (o *Orchestrator) Agents() []agent.Agent {
	return []agent.Agent{o.speech, o.security, o.reasoning, o.coder, o.validator}
}

// run carries the state of one Execute call.
type run struct {
	id     string
	obs    *observability.Run
	opts   *Options
	rootID *int64
	stage  string
	span   trace.Span

	// tool events of the current stage, written under its stage event
	pendingTools []pendingEvent
}

type pendingEvent struct {
	eventType string
	payload   map[string]any
}

// Execute runs input through every stage. input is a transcript string or
// raw audio bytes. opts is normalized in place and shared with the agents.
func (o *Orchestrator) Execute(ctx context.Context, input any, opts *Options) (result Result) {
	if opts == nil {
		opts = &Options{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := describeInput(input)
	r := &run{obs: o.tracker.Start(query), opts: opts, stage: StageSpeech}
	r.id = r.obs.ID()

	ctx, r.span = o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("voicecursor.run_id", r.id),
	))
	defer r.span.End()
	ctx = tool.WithObserver(ctx, observers{r.obs, &toolAuditor{o: o, r: r}})

	defer func() {
		if p := recover(); p != nil {
			o.log.Error("pipeline panic", "run_id", r.id, "stage", r.stage, "panic", p)
			result = o.fail(r, r.stage, fmt.Sprintf("Pipeline error: %v", p), nil)
		}
	}()

	o.audit.PipelineStart(r.id, query)
	o.log.Info("pipeline started", "run_id", r.id, "input", query)
	if o.events != nil {
		id, err := o.events.LogEvent(nil, db.EventPipelineStarted, map[string]any{
			"run_id": r.id,
			"input":  query,
		})
		if err != nil {
			o.log.Warn("event sink unavailable", "error", err)
		} else {
			r.rootID = &id
		}
	}

	if err := opts.Normalize(); err != nil {
		return o.fail(r, StageSpeech, "Invalid options: "+err.Error(), nil)
	}
	r.span.SetAttributes(attribute.String("voicecursor.language", opts.Language))

	speech := o.stage(ctx, r, StageSpeech, o.speech, input)
	if !speech.Success {
		return o.fail(r, StageSpeech, speech.Error, speech.Metadata)
	}
	transcript, _ := speech.Data.(string)

	security := o.stage(ctx, r, StageSecurity, o.security, transcript)
	if !security.Success {
		return o.fail(r, StageSecurity, security.Error, security.Metadata)
	}
	command, _ := security.Data.(string)

	reasoning := o.stage(ctx, r, StageReasoning, o.reasoning, command)
	if !reasoning.Success {
		return o.fail(r, StageReasoning, reasoning.Error, reasoning.Metadata)
	}

	coding := o.stage(ctx, r, StageCoding, o.coder, reasoning.Data)
	if !coding.Success {
		return o.fail(r, StageCoding, coding.Error, coding.Metadata)
	}
	artifact, _ := coding.Data.(agent.CodeArtifact)

	validation := o.stage(ctx, r, StageValidation, o.validator, artifact)
	if !validation.Success {
		return o.fail(r, StageValidation, validation.Error, validation.Metadata)
	}
	outcome, _ := validation.Data.(agent.ValidationOutcome)

	o.recordChange(r, artifact, outcome)

	meta := o.finish(r, true, "")
	meta["transcript"] = transcript
	meta["plan"] = reasoning.Data
	meta["code"] = artifact
	o.log.Info("pipeline complete", "run_id", r.id, "status", outcome.Status)
	return Result{
		Success:  true,
		Stage:    StageComplete,
		Data:     outcome,
		Metadata: meta,
	}
}

// stage runs one agent and records it in the audit log, the tracker, the
// event sink and a child span.
func (o *Orchestrator) stage(ctx context.Context, r *run, name string, a agent.Agent, input any) agent.Result {
	r.stage = name
	if err := ctx.Err(); err != nil {
		return agent.Fail(fmt.Sprintf("Pipeline canceled: %v", err), nil)
	}

	ctx, span := o.tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("voicecursor.stage", name),
		attribute.String("voicecursor.agent", a.Name()),
	))
	defer span.End()

	r.obs.AgentStart(name)
	res := a.Execute(ctx, input, r.opts)
	r.obs.AgentEnd(a.Name(), name, res.Success)

	o.audit.LogAgentCall(r.id, a.Name(), input, res.Data, res.Success, res.Error, res.Metadata)

	eventType := db.EventStageCompleted
	if res.Success {
		o.log.Info("stage completed", "run_id", r.id, "stage", name, "agent", a.Name())
	} else {
		eventType = db.EventStageFailed
		span.SetStatus(codes.Error, res.Error)
		o.log.Warn("stage failed", "run_id", r.id, "stage", name, "error", res.Error)
	}
	stageID := o.event(r, r.rootID, eventType, map[string]any{
		"run_id": r.id,
		"stage":  name,
		"agent":  a.Name(),
		"error":  res.Error,
	})
	for _, pe := range r.pendingTools {
		o.event(r, stageID, pe.eventType, pe.payload)
	}
	r.pendingTools = nil
	return res
}

func (o *Orchestrator) fail(r *run, stage, msg string, stageMeta map[string]any) Result {
	r.span.SetStatus(codes.Error, msg)
	r.span.SetAttributes(attribute.String("voicecursor.failed_stage", stage))
	meta := o.finish(r, false, msg)
	for k, v := range stageMeta {
		if _, taken := meta[k]; !taken {
			meta[k] = v
		}
	}
	return Result{Success: false, Stage: stage, Error: msg, Metadata: meta}
}

// finish closes the run in every sink and returns the shared result metadata.
func (o *Orchestrator) finish(r *run, success bool, msg string) map[string]any {
	if err := o.audit.PipelineEnd(r.id, success, msg); err != nil {
		o.log.Error("save audit log", "run_id", r.id, "error", err)
	}
	if _, err := r.obs.End(success, msg); err != nil {
		o.log.Error("save observability record", "run_id", r.id, "error", err)
	}
	eventType := db.EventPipelineCompleted
	if !success {
		eventType = db.EventPipelineFailed
	}
	o.event(r, r.rootID, eventType, map[string]any{
		"run_id":  r.id,
		"success": success,
		"error":   msg,
	})
	return map[string]any{
		"run_id":    r.id,
		"record_id": r.obs.ID(),
		"log_file":  o.audit.TextPath(),
		"json_log":  o.audit.JSONPath(),
	}
}

// event logs a child of parent and returns its id. It is a no-op without an
// event sink or once the root event failed to write.
func (o *Orchestrator) event(r *run, parent *int64, eventType string, payload map[string]any) *int64 {
	if o.events == nil || r.rootID == nil || parent == nil {
		return nil
	}
	id, err := o.events.LogEvent(parent, eventType, payload)
	if err != nil {
		o.log.Warn("log event", "type", eventType, "error", err)
		return nil
	}
	return &id
}

func (o *Orchestrator) recordChange(r *run, artifact agent.CodeArtifact, outcome agent.ValidationOutcome) {
	if o.events == nil {
		return
	}
	status := db.ChangeStatusPending
	path := r.opts.FilePath
	if outcome.Status == agent.StatusApplied {
		status = db.ChangeStatusApplied
		if outcome.FilePath != "" {
			path = outcome.FilePath
		}
	}
	if err := o.events.RecordChange(r.id, artifact.Command, artifact.Language, path, artifact.Code, status); err != nil {
		o.log.Warn("record change", "run_id", r.id, "error", err)
	}
}

func describeInput(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case []byte:
		return fmt.Sprintf("<audio %d bytes>", len(v))
	case nil:
		return ""
	}
	return fmt.Sprint(input)
}
