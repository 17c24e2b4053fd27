package tool

import (
	"strings"
	"unicode/utf8"
)

// Limits bounds what an external formatter may hand back. Zero fields are
// unbounded.
type Limits struct {
	MaxLines int
	MaxBytes int
}

// Exceeds names the bound text breaks ("lines" or "bytes"), or returns ""
// when text fits.
func (l Limits) Exceeds(text string) string {
	if l.MaxBytes > 0 && len(text) > l.MaxBytes {
		return "bytes"
	}
	if l.MaxLines > 0 && strings.Count(strings.TrimSuffix(text, "\n"), "\n")+1 > l.MaxLines {
		return "lines"
	}
	return ""
}

// Clip shortens text to the limits for error messages, appending "..."
// when anything was cut. A multi-byte rune is never split.
func (l Limits) Clip(text string) string {
	clipped := false
	if l.MaxLines > 0 {
		if lines := strings.SplitN(text, "\n", l.MaxLines+1); len(lines) > l.MaxLines {
			text = strings.Join(lines[:l.MaxLines], "\n")
			clipped = true
		}
	}
	if l.MaxBytes > 0 && len(text) > l.MaxBytes {
		cut := l.MaxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		clipped = true
	}
	if clipped {
		return text + "..."
	}
	return text
}
