package tool

import (
	"strings"
	"testing"
)

func TestLimitsExceeds(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		text   string
		want   string
	}{
		{name: "unbounded", limits: Limits{}, text: strings.Repeat("x\n", 100)},
		{name: "fits", limits: Limits{MaxLines: 3, MaxBytes: 10}, text: "a\nb\nc"},
		{name: "too many lines", limits: Limits{MaxLines: 2}, text: "a\nb\nc", want: "lines"},
		{name: "too many bytes", limits: Limits{MaxBytes: 3}, text: "abcd", want: "bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limits.Exceeds(tt.text); got != tt.want {
				t.Fatalf("Exceeds() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLimitsClip(t *testing.T) {
	if got := (Limits{MaxLines: 2}).Clip("a\nb\nc\nd"); got != "a\nb..." {
		t.Fatalf("unexpected line clip: %q", got)
	}
	if got := (Limits{MaxBytes: 3}).Clip("abcdef"); got != "abc..." {
		t.Fatalf("unexpected byte clip: %q", got)
	}
	if got := (Limits{MaxBytes: 3}).Clip("abéé"); got != "ab..." {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if got := (Limits{MaxLines: 5, MaxBytes: 50}).Clip("short"); got != "short" {
		t.Fatalf("short text should pass through, got %q", got)
	}
}
