package tool

import (
	"context"
	"fmt"

	"github.com/stupiduntilnot/voicecursor/internal/model"
)

// STT turns audio into a transcript. A string input is treated as an
// already-transcribed command (browser speech APIs, typed input) and passes
// through unchanged; []byte input is sent to the Transcriber.
type STT struct {
	Transcriber model.Transcriber
	Language    string
}

func NewSTT(transcriber model.Transcriber, language string) *STT {
	return &STT{Transcriber: transcriber, Language: language}
}

func (t *STT) Name() string {
	if t.Transcriber == nil {
		return "stt:passthrough"
	}
	return "stt:" + t.Transcriber.Model()
}

func (t *STT) Call(ctx context.Context, input any, opts Options) Result {
	switch in := input.(type) {
	case string:
		return OK(in, map[string]any{"source": "text_passthrough"})
	case []byte:
		if len(in) == 0 {
			return Fail("empty audio input")
		}
		if t.Transcriber == nil {
			return Fail("no transcription provider configured for audio input")
		}
		tr, err := t.Transcriber.Transcribe(ctx, in, model.TranscribeOptions{
			Filename: opts.String("filename", "audio.wav"),
			Language: opts.String("language_code", t.Language),
			Prompt:   opts.String("prompt", ""),
		})
		if err != nil {
			return Fail(fmt.Sprintf("%s transcription error: %v", t.Transcriber.Model(), err))
		}
		if tr.Text == "" {
			return Fail("No speech detected in audio")
		}
		meta := map[string]any{
			"model":       t.Transcriber.Model(),
			"audio_bytes": len(in),
		}
		if tr.Duration > 0 {
			meta["duration"] = fmt.Sprintf("%.1fs", tr.Duration.Seconds())
			meta["duration_seconds"] = tr.Duration.Seconds()
		}
		if tr.Language != "" {
			meta["language"] = tr.Language
		}
		return OK(tr.Text, meta)
	default:
		return Fail(fmt.Sprintf("unsupported STT input type %T", input))
	}
}
