package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const DefaultLanguage = "python"

var languagePattern = regexp.MustCompile(`^[a-z0-9+#._-]+$`)

// Options is the per-run context threaded by pointer through every stage.
// Stages may add entries to Values but never remove keys they did not add.
type Options struct {
	Language        string
	ExistingCode    string
	RequireApproval *bool
	FilePath        string
	WorkspacePath   string

	Values map[string]any
}

// Bool returns a pointer to v, for RequireApproval literals.
func Bool(v bool) *bool { return &v }

// Normalize applies defaults and validates the caller-supplied fields.
func (o *Options) Normalize() error {
	o.Language = strings.ToLower(strings.TrimSpace(o.Language))
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if !languagePattern.MatchString(o.Language) {
		return fmt.Errorf("invalid language %q", o.Language)
	}
	if o.RequireApproval == nil {
		o.RequireApproval = Bool(true)
	}
	o.FilePath = strings.TrimSpace(o.FilePath)
	if ws := strings.TrimSpace(o.WorkspacePath); ws != "" {
		abs, err := filepath.Abs(ws)
		if err != nil {
			return fmt.Errorf("workspace path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("workspace path: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("workspace path is not a directory: %s", abs)
		}
		o.WorkspacePath = abs
	}
	if o.Values == nil {
		o.Values = map[string]any{}
	}
	return nil
}

// ApprovalRequired reports whether writes must wait for ApproveAndApply.
// A nil flag counts as true.
func (o *Options) ApprovalRequired() bool {
	return o == nil || o.RequireApproval == nil || *o.RequireApproval
}

func (o *Options) Set(key string, v any) {
	if o.Values == nil {
		o.Values = map[string]any{}
	}
	o.Values[key] = v
}

func (o *Options) Get(key string) (any, bool) {
	if o == nil || o.Values == nil {
		return nil, false
	}
	v, ok := o.Values[key]
	return v, ok
}

func (o *Options) language() string {
	if o == nil || o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

func (o *Options) existingCode() string {
	if o == nil {
		return ""
	}
	return o.ExistingCode
}

func (o *Options) languageCode() string {
	if v, ok := o.Get("language_code"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
