package model

import (
	"context"
	"time"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string
	Content string
}

// CompletionResponse is the common response model for model providers.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the language-model abstraction behind the LLM tool.
type Provider interface {
	Model() string
	ChatCompletion(ctx context.Context, messages []Message) (CompletionResponse, error)
}

// Transcription is the result of one speech-to-text request.
type Transcription struct {
	Text     string
	Language string
	Duration time.Duration
}

// TranscribeOptions are hints passed to a speech-to-text provider.
type TranscribeOptions struct {
	Filename string
	Language string
	Prompt   string
}

// Transcriber is the speech-to-text abstraction behind the STT tool.
type Transcriber interface {
	Model() string
	Transcribe(ctx context.Context, audio []byte, opts TranscribeOptions) (Transcription, error)
}
