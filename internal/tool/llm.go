package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/stupiduntilnot/voicecursor/internal/model"
)

// DefaultSystemPrompt frames every LLM call made by the pipeline.
const DefaultSystemPrompt = "You are an expert programmer. Generate clear, working code based on user requests. Be concise and practical."

// LLM exposes a model.Provider as a Tool taking a prompt string.
type LLM struct {
	Provider     model.Provider
	SystemPrompt string
	name         string
}

func NewLLM(provider model.Provider, systemPrompt string) *LLM {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	name := "llm"
	if provider != nil && provider.Model() != "" {
		name = "llm:" + provider.Model()
	}
	return &LLM{Provider: provider, SystemPrompt: systemPrompt, name: name}
}

// Name includes the model so pricing lookups can match on it.
func (t *LLM) Name() string { return t.name }

func (t *LLM) Call(ctx context.Context, input any, opts Options) Result {
	if t.Provider == nil {
		return Fail("no language model provider configured")
	}
	prompt, ok := input.(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return Fail("LLM prompt must be a non-empty string")
	}

	messages := []model.Message{
		{Role: "system", Content: opts.String("system_prompt", t.SystemPrompt)},
		{Role: "user", Content: prompt},
	}
	resp, err := t.Provider.ChatCompletion(ctx, messages)
	if err != nil {
		return Fail(fmt.Sprintf("%s error: %v", t.Provider.Model(), err))
	}
	return OK(resp.Content, map[string]any{
		"model":         t.Provider.Model(),
		"tokens":        resp.InputTokens + resp.OutputTokens,
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
	})
}
