package agent

import (
	"regexp"
	"strings"
)

var extensions = map[string]string{
	"python":     "py",
	"javascript": "js",
	"typescript": "ts",
	"html":       "html",
	"css":        "css",
	"java":       "java",
	"go":         "go",
	"rust":       "rs",
	"cpp":        "cpp",
	"c":          "c",
}

// Tried in order; the first rule whose capture is more than filler words wins.
var filenameRules = []*regexp.Regexp{
	regexp.MustCompile(`create\s+(?:a\s+)?(?:an\s+)?(.+?)\s+(?:module|class|function|script|file|component)`),
	regexp.MustCompile(`build\s+(?:a\s+)?(?:an\s+)?(.+?)(?:\s+that|\s+to|\s+which|$)`),
	regexp.MustCompile(`make\s+(?:a\s+)?(?:an\s+)?(.+?)(?:\s+that|\s+to|\s+which|$)`),
	regexp.MustCompile(`write\s+(?:a\s+)?(?:an\s+)?(?:function|method|class)\s+to\s+(.+?)(?:\s+that|\s+which|$)`),
	regexp.MustCompile(`add\s+(?:a\s+)?(?:an\s+)?(.+?)\s+(?:feature|functionality|capability)`),
	regexp.MustCompile(`implement\s+(.+?)(?:\s+that|\s+to|\s+which|$)`),
	regexp.MustCompile(`(?:for|to)\s+(.+?)(?:\s+that|\s+to|\s+which|$)`),
}

var filenameStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "for": true, "of": true,
	"in": true, "on": true, "at": true, "by": true, "with": true, "from": true,
	"that": true, "which": true, "this": true, "these": true, "those": true,
	"i": true, "you": true, "we": true, "they": true,
	"create": true, "make": true, "build": true, "write": true, "add": true,
	"implement": true, "develop": true,
}

var (
	wordPattern      = regexp.MustCompile(`\w+`)
	unsafeRunPattern = regexp.MustCompile(`[^a-z0-9_]+`)
	underscoreRun    = regexp.MustCompile(`_+`)
)

const maxFilenameStem = 30

// SuggestFilename derives a filesystem-safe file name from a natural
// language command, e.g. "build a calculator" -> "calculator.py".
func SuggestFilename(command, language string) string {
	ext, ok := extensions[strings.ToLower(language)]
	if !ok {
		ext = "txt"
	}
	lower := strings.ToLower(command)

	stem := ""
	for _, rule := range filenameRules {
		m := rule.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if capture := strings.TrimSpace(m[1]); !onlyStopWords(capture) {
			stem = capture
			break
		}
	}
	if stem == "" {
		var keys []string
		for _, w := range wordPattern.FindAllString(lower, -1) {
			if !filenameStopWords[w] && len(w) > 2 {
				keys = append(keys, w)
			}
			if len(keys) == 3 {
				break
			}
		}
		stem = "code"
		if len(keys) > 0 {
			stem = strings.Join(keys, "_")
		}
	}

	stem = unsafeRunPattern.ReplaceAllString(stem, "_")
	stem = underscoreRun.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "_")
	if len(stem) > maxFilenameStem {
		stem = strings.TrimRight(stem[:maxFilenameStem], "_")
	}
	if stem == "" {
		stem = "generated_code"
	}
	return stem + "." + ext
}

func onlyStopWords(s string) bool {
	for _, w := range wordPattern.FindAllString(s, -1) {
		if !filenameStopWords[w] {
			return false
		}
	}
	return true
}
