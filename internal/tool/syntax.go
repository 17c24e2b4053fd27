package tool

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"strings"
	"unicode/utf8"
)

// SyntaxChecker performs a cheap structural check of generated code. Go
// sources are parsed with go/parser; other languages get a bracket and
// quote balance check that skips string literals and comments.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker { return &SyntaxChecker{} }

func (t *SyntaxChecker) Name() string { return "syntax-checker" }

func (t *SyntaxChecker) Call(ctx context.Context, input any, opts Options) Result {
	code, ok := input.(string)
	if !ok {
		return Fail(fmt.Sprintf("syntax checker expects string input, got %T", input))
	}
	if strings.TrimSpace(code) == "" {
		return Fail("empty code")
	}
	language := strings.ToLower(opts.String("language", ""))

	var err error
	switch language {
	case "go":
		err = checkGo(code)
	default:
		err = checkBalanced(code, language)
	}
	if err != nil {
		return Fail(fmt.Sprintf("%s syntax error: %v", languageLabel(language), err))
	}
	return OK(code, map[string]any{"language": language, "checked": true})
}

func checkGo(code string) error {
	src := code
	if !strings.HasPrefix(strings.TrimSpace(code), "package ") {
		src = "package snippet\n" + code
	}
	_, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, parser.AllErrors)
	return err
}

func lineCommentFor(language string) string {
	switch language {
	case "python", "ruby", "shell", "bash", "yaml":
		return "#"
	case "html", "css":
		return ""
	default:
		return "//"
	}
}

func languageLabel(language string) string {
	if language == "" {
		return "code"
	}
	return language
}

var closers = map[byte]byte{')': '(', ']': '[', '}': '{'}

func checkBalanced(code, language string) error {
	lineComment := lineCommentFor(language)
	tripleQuotes := language == "python"
	blockComments := lineComment == "//" || language == "css"
	rust := language == "rust"
	apostropheQuotes := !rust && language != "html"

	var stack []byte
	line := 1
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '\n':
			line++
		case lineComment != "" && strings.HasPrefix(code[i:], lineComment):
			if end := strings.IndexByte(code[i:], '\n'); end >= 0 {
				i += end - 1
			} else {
				i = len(code)
			}
		case blockComments && strings.HasPrefix(code[i:], "/*"):
			end := strings.Index(code[i+2:], "*/")
			if end < 0 {
				return fmt.Errorf("line %d: unterminated block comment", line)
			}
			line += strings.Count(code[i+2:i+2+end], "\n")
			i += 2 + end + 1
		case rust && c == '\'':
			i += rustCharLiteral(code[i:])
		case tripleQuotes && (strings.HasPrefix(code[i:], `"""`) || strings.HasPrefix(code[i:], "'''")):
			delim := code[i : i+3]
			end := strings.Index(code[i+3:], delim)
			if end < 0 {
				return fmt.Errorf("line %d: unterminated triple-quoted string", line)
			}
			body := code[i+3 : i+3+end]
			line += strings.Count(body, "\n")
			i += 3 + end + 2
		case c == '"' || c == '`' || (c == '\'' && apostropheQuotes):
			j := i + 1
			for ; j < len(code); j++ {
				if code[j] == '\\' {
					j++
					continue
				}
				if code[j] == c {
					break
				}
				if code[j] == '\n' {
					if c != '`' {
						return fmt.Errorf("line %d: unterminated string literal", line)
					}
					line++
				}
			}
			if j >= len(code) {
				return fmt.Errorf("line %d: unterminated string literal", line)
			}
			i = j
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, c)
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 || stack[len(stack)-1] != closers[c] {
				return fmt.Errorf("line %d: unexpected %q", line, c)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

// rustCharLiteral returns how many bytes past the opening apostrophe a
// character literal such as 'x', '\n' or '\u{1F600}' extends. A lifetime
// ('a) is not a literal and yields 0.
func rustCharLiteral(s string) int {
	if len(s) < 3 {
		return 0
	}
	if s[1] == '\\' {
		if len(s) < 4 {
			return 0
		}
		end := strings.IndexByte(s[3:], '\'')
		if end < 0 || end > 8 || strings.ContainsRune(s[3:3+end], '\n') {
			return 0
		}
		return 3 + end
	}
	_, size := utf8.DecodeRuneInString(s[1:])
	if 1+size < len(s) && s[1+size] == '\'' {
		return 1 + size
	}
	return 0
}
