package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stupiduntilnot/voicecursor/internal/audit"
	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/db"
	"github.com/stupiduntilnot/voicecursor/internal/dummy"
	"github.com/stupiduntilnot/voicecursor/internal/model"
	"github.com/stupiduntilnot/voicecursor/internal/observability"
	"github.com/stupiduntilnot/voicecursor/internal/openai"
	"github.com/stupiduntilnot/voicecursor/internal/pipeline"
	"github.com/stupiduntilnot/voicecursor/internal/telemetry"
	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

// app owns everything one command invocation opens.
type app struct {
	cfg      config.Config
	orch     *pipeline.Orchestrator
	audit    *audit.Logger
	tracker  *observability.Tracker
	store    *db.Store
	shutdown telemetry.Shutdown
}

func newApp(ctx context.Context, cfg config.Config, tools pipeline.Tools) (*app, error) {
	a := &app{cfg: cfg}
	var err error
	a.shutdown, err = telemetry.Init(ctx, cfg.OTelEndpoint, "voicecursor", version)
	if err != nil {
		return nil, err
	}

	pricing := observability.DefaultPricing()
	if cfg.PricingFile != "" {
		if pricing, err = observability.LoadPricing(cfg.PricingFile); err != nil {
			a.close(ctx)
			return nil, err
		}
	}
	if a.tracker, err = observability.NewTracker(cfg.ObsDir, pricing, nil); err != nil {
		a.close(ctx)
		return nil, err
	}
	if a.audit, err = audit.NewLogger(cfg.LogDir); err != nil {
		a.close(ctx)
		return nil, err
	}
	deps := pipeline.Deps{
		Tools:   tools,
		Audit:   a.audit,
		Tracker: a.tracker,
		Tracer:  telemetry.Tracer(nil),
	}
	if cfg.AuditDBPath != "" {
		if a.store, err = db.Open(cfg.AuditDBPath); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("open audit db: %w", err)
		}
		deps.Events = a.store
	}
	if a.orch, err = pipeline.New(deps); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			slog.Warn("close audit log", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("close audit db", "error", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			slog.Warn("flush traces", "error", err)
		}
	}
}

type registration struct {
	role tool.Role
	tool tool.Tool
}

// buildTools registers every configured tool and hands each stage its own.
func buildTools(cfg config.Config) (pipeline.Tools, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return pipeline.Tools{}, err
	}
	transcriber, err := newTranscriber(cfg)
	if err != nil {
		return pipeline.Tools{}, err
	}

	reg := tool.NewRegistry()
	llm := tool.NewLLM(provider, "")
	regs := []registration{
		{tool.RoleTranscribe, tool.NewSTT(transcriber, cfg.STTLanguage)},
		{tool.RoleGenerate, llm},
	}
	if cfg.PlanWithLLM {
		regs = append(regs, registration{tool.RolePlan, llm})
	}
	if cfg.EnableSanitizer {
		regs = append(regs, registration{tool.RoleSanitize, tool.NewSanitizer()})
	}
	if cfg.AutoFormat {
		regs = append(regs, registration{tool.RoleFormat, tool.NewFormatter(cfg.FormatterCmds, 0, tool.Limits{})})
	}
	if cfg.CheckSyntax {
		regs = append(regs, registration{tool.RoleCheck, tool.NewSyntaxChecker()})
	}
	for _, r := range regs {
		if err := reg.Register(r.role, r.tool); err != nil {
			return pipeline.Tools{}, err
		}
	}
	for _, m := range reg.List() {
		slog.Debug("tool registered", "role", m.Role, "name", m.Name)
	}
	return toolsFromRegistry(reg), nil
}

// toolsFromRegistry hands each stage the tools registered for its role.
func toolsFromRegistry(reg *tool.Registry) pipeline.Tools {
	tools := pipeline.Tools{Checkers: reg.All(tool.RoleCheck)}
	tools.STT, _ = reg.Primary(tool.RoleTranscribe)
	tools.Sanitizer, _ = reg.Primary(tool.RoleSanitize)
	tools.Planner, _ = reg.Primary(tool.RolePlan)
	tools.Generator, _ = reg.Primary(tool.RoleGenerate)
	tools.Formatter, _ = reg.Primary(tool.RoleFormat)
	return tools
}

func newProvider(cfg config.Config) (model.Provider, error) {
	switch cfg.LLMProvider {
	case "dummy":
		return dummy.NewProvider(cfg.LLMModel, cfg.DummyLLMScript)
	case "groq", "openai":
		url := openai.DefaultChatURL
		if cfg.LLMProvider == "groq" {
			url = openai.GroqChatURL
		}
		client := openai.NewClient(cfg.LLMAPIKey, orDefault(cfg.LLMURL, url), cfg.LLMModel, cfg.HTTPTimeout)
		if cfg.LLMTemperature >= 0 || cfg.LLMMaxTokens > 0 {
			temperature := float32(openai.DefaultTemperature)
			if cfg.LLMTemperature >= 0 {
				temperature = float32(cfg.LLMTemperature)
			}
			client.WithSampling(temperature, cfg.LLMMaxTokens)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
}

// newTranscriber returns nil for passthrough, which accepts text input only.
func newTranscriber(cfg config.Config) (model.Transcriber, error) {
	switch cfg.STTProvider {
	case "passthrough":
		return nil, nil
	case "dummy":
		return dummy.NewTranscriber(cfg.STTModel, cfg.DummySTTScript)
	case "groq":
		return openai.NewTranscriber(cfg.STTAPIKey, orDefault(cfg.STTURL, openai.GroqTranscriptionURL), cfg.STTModel, cfg.HTTPTimeout), nil
	case "openai":
		return openai.NewTranscriber(cfg.STTAPIKey, orDefault(cfg.STTURL, openai.DefaultTranscriptionURL), cfg.STTModel, cfg.HTTPTimeout), nil
	}
	return nil, fmt.Errorf("unsupported stt provider %q", cfg.STTProvider)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
