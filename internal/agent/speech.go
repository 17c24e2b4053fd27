package agent

import (
	"context"

	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

// Speech converts spoken input into a text command using tools[0].
type Speech struct{ base }

func NewSpeech() *Speech {
	return &Speech{base: newBase("Speech Agent", "Converts voice audio to text using STT APIs", "speech")}
}

func (a *Speech) Execute(ctx context.Context, input any, opts *Options) (res Result) {
	defer guard(&res, "Speech agent error")

	if len(a.tools) == 0 {
		return FailErr(errorf(ErrNoTool, "No STT tool configured"), nil)
	}
	stt := a.tools[0]
	out := a.call(ctx, 0, input, tool.Options{"language_code": opts.languageCode()})
	if !out.Success {
		return Fail("STT failed: "+out.Error, nil)
	}

	audioLength := any("unknown")
	if d, ok := out.Meta("duration"); ok {
		audioLength = d
	}
	return Succeed(out.Output, map[string]any{
		"agent":        a.name,
		"tool_used":    stt.Name(),
		"audio_length": audioLength,
	})
}
