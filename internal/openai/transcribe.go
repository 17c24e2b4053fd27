package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/stupiduntilnot/voicecursor/internal/model"
)

const (
	DefaultTranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"
	GroqTranscriptionURL    = "https://api.groq.com/openai/v1/audio/transcriptions"
	ModelWhisper1           = "whisper-1"
)

// Transcriber calls an OpenAI-compatible Whisper transcription endpoint.
type Transcriber struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

func NewTranscriber(apiKey, url, model string, timeout time.Duration) *Transcriber {
	if model == "" {
		model = ModelWhisper1
	}
	return &Transcriber{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *Transcriber) Model() string { return t.model }

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Transcribe uploads audio as multipart form data and returns the transcript.
// verbose_json is requested so the provider reports the audio duration.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, opts model.TranscribeOptions) (model.Transcription, error) {
	if len(audio) == 0 {
		return model.Transcription{}, fmt.Errorf("empty audio")
	}
	filename := opts.Filename
	if filename == "" {
		filename = "audio.wav"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return model.Transcription{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return model.Transcription{}, fmt.Errorf("failed to write audio data: %w", err)
	}
	fields := map[string]string{
		"model":           t.model,
		"response_format": "verbose_json",
		"language":        opts.Language,
		"prompt":          opts.Prompt,
	}
	for _, key := range []string{"model", "response_format", "language", "prompt"} {
		if fields[key] == "" {
			continue
		}
		if err := writer.WriteField(key, fields[key]); err != nil {
			return model.Transcription{}, fmt.Errorf("failed to write %s field: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return model.Transcription{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, &buf)
	if err != nil {
		return model.Transcription{}, fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return model.Transcription{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Transcription{}, fmt.Errorf("failed reading transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Transcription{}, fmt.Errorf("transcription non-success status=%d body=%s", resp.StatusCode, truncate(string(body), 400))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Transcription{}, fmt.Errorf("failed to parse transcription response: %s", truncate(string(body), 400))
	}
	return model.Transcription{
		Text:     parsed.Text,
		Language: parsed.Language,
		Duration: time.Duration(parsed.Duration * float64(time.Second)),
	}, nil
}
