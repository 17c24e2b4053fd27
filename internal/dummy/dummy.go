// Package dummy provides scripted model and speech providers for tests and
// offline demo runs. A script is a comma-separated list of actions consumed
// one per call; the last action repeats once the script is exhausted:
//
//	ok            canned success
//	err:<class>   provider error
//	sleep:<ms>    delay, then canned success
//	msg:<text>    respond with text
//	msgb64:<b64>  respond with base64-decoded text (for multi-line or comma content)
package dummy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stupiduntilnot/voicecursor/internal/model"
)

type action struct {
	kind string
	arg  string
}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			actions = append(actions, action{kind: "ok"})
			continue
		}
		if strings.HasPrefix(token, "err:") {
			actions = append(actions, action{kind: "err", arg: strings.TrimPrefix(token, "err:")})
			continue
		}
		if strings.HasPrefix(token, "sleep:") {
			actions = append(actions, action{kind: "sleep", arg: strings.TrimPrefix(token, "sleep:")})
			continue
		}
		if strings.HasPrefix(token, "msg:") {
			actions = append(actions, action{kind: "msg", arg: strings.TrimPrefix(token, "msg:")})
			continue
		}
		if strings.HasPrefix(token, "msgb64:") {
			actions = append(actions, action{kind: "msgb64", arg: strings.TrimPrefix(token, "msgb64:")})
			continue
		}
		return nil, fmt.Errorf("invalid dummy action: %s", token)
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Provider is a scripted model.Provider.
type Provider struct {
	mu     sync.Mutex
	model  string
	script *scriptRunner
	calls  [][]model.Message
}

func NewProvider(modelName, script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{model: modelName, script: runner}, nil
}

func (p *Provider) Model() string { return p.model }

// Calls returns the message lists received so far.
func (p *Provider) Calls() [][]model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]model.Message, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *Provider) ChatCompletion(ctx context.Context, messages []model.Message) (model.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, messages)

	text, err := p.script.next().respond(ctx, "dummy-ok", "provider_api")
	if err != nil {
		return model.CompletionResponse{}, fmt.Errorf("dummy provider %w", err)
	}
	return model.CompletionResponse{
		Content:      text,
		InputTokens:  estimateTokens(messages),
		OutputTokens: len(strings.Fields(text)),
	}, nil
}

// Transcriber is a scripted model.Transcriber.
type Transcriber struct {
	mu     sync.Mutex
	model  string
	script *scriptRunner
}

func NewTranscriber(modelName, script string) (*Transcriber, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Transcriber{model: modelName, script: runner}, nil
}

func (t *Transcriber) Model() string { return t.model }

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, opts model.TranscribeOptions) (model.Transcription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	text, err := t.script.next().respond(ctx, "dummy transcript", "stt_api")
	if err != nil {
		return model.Transcription{}, fmt.Errorf("dummy transcriber %w", err)
	}
	// 16kHz mono 16-bit PCM: 32000 bytes per second.
	return model.Transcription{
		Text:     text,
		Language: opts.Language,
		Duration: time.Duration(len(audio)) * time.Second / 32000,
	}, nil
}

func (a action) respond(ctx context.Context, okText, errClass string) (string, error) {
	switch a.kind {
	case "err":
		return "", fmt.Errorf("error class=%s", emptyAs(a.arg, errClass))
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return "dummy-after-sleep", nil
	case "msg":
		return a.arg, nil
	case "msgb64":
		raw, err := base64.StdEncoding.DecodeString(a.arg)
		if err != nil {
			return "", fmt.Errorf("msgb64 decode failed: %w", err)
		}
		return string(raw), nil
	default:
		return emptyAs(a.arg, okText), nil
	}
}

func estimateTokens(messages []model.Message) int {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
