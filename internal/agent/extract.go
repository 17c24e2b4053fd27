package agent

import (
	"regexp"
	"strings"
)

// fencedBlock captures a fence's language tag and its body.
var fencedBlock = regexp.MustCompile("(?s)```" + `[ \t]*([^\s` + "`" + `]*)[ \t]*\r?\n(.*?)` + "```")

var proseLinePrefixes = []string{"Here", "This", "The", "Note:", "Explanation:"}

// ExtractCode strips markdown and conversational prose from model output.
// The first fenced block tagged with language (or untagged) wins; otherwise
// prose and comment lines outside fences are dropped. When nothing survives
// the original text is returned trimmed.
func ExtractCode(text, language string) string {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if m[1] == "" || strings.EqualFold(m[1], language) {
			return strings.TrimSpace(m[2])
		}
	}

	var kept []string
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if hasAnyPrefix(trimmed, proseLinePrefixes) {
			continue
		}
		if strings.Contains(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode || (trimmed != "" && !strings.HasPrefix(trimmed, "#")) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
