package dummy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stupiduntilnot/voicecursor/internal/model"
)

func TestNewProvider_InvalidScript(t *testing.T) {
	_, err := NewProvider("x", "boom")
	if err == nil {
		t.Fatal("expected parse error for invalid script")
	}
}

func TestProvider_ScriptedResponses(t *testing.T) {
	p, err := NewProvider("x", "err:provider_api,msg:hello")
	if err != nil {
		t.Fatal(err)
	}
	msgs := []model.Message{{Role: "user", Content: "hi"}}

	_, err = p.ChatCompletion(context.Background(), msgs)
	if err == nil {
		t.Fatal("expected first call to error")
	}
	if !strings.Contains(err.Error(), "provider_api") {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.ChatCompletion(context.Background(), msgs)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected hello, got %q", resp.Content)
	}
	if len(p.Calls()) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(p.Calls()))
	}
}

func TestProvider_LastActionRepeats(t *testing.T) {
	p, err := NewProvider("x", "msg:a,msg:b")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := 0; i < 4; i++ {
		resp, err := p.ChatCompletion(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, resp.Content)
	}
	if strings.Join(got, ",") != "a,b,b,b" {
		t.Fatalf("unexpected sequence: %v", got)
	}
}

func TestProvider_MsgB64Action(t *testing.T) {
	p, err := NewProvider("x", "msgb64:aGVsbG8=") // "hello"
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.ChatCompletion(context.Background(), []model.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected hello, got %q", resp.Content)
	}
	if resp.InputTokens != 1 || resp.OutputTokens != 1 {
		t.Fatalf("unexpected token estimate: in=%d out=%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestProvider_SleepHonorsContext(t *testing.T) {
	p, err := NewProvider("x", "sleep:5000")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.ChatCompletion(ctx, nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestTranscriber_Scripted(t *testing.T) {
	tr, err := NewTranscriber("whisper-dummy", "msg:create a calculator,err:stt_api")
	if err != nil {
		t.Fatal(err)
	}
	audio := make([]byte, 64000)
	got, err := tr.Transcribe(context.Background(), audio, model.TranscribeOptions{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "create a calculator" {
		t.Fatalf("unexpected text: %q", got.Text)
	}
	if got.Duration != 2*time.Second {
		t.Fatalf("expected 2s duration, got %v", got.Duration)
	}
	if _, err := tr.Transcribe(context.Background(), audio, model.TranscribeOptions{}); err == nil {
		t.Fatal("expected scripted error")
	}
}
