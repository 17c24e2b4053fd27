package tool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBlockedPhrases screens commands when no sanitizer tool is
// configured.
var DefaultBlockedPhrases = []string{
	"rm -rf /",
	"sudo",
	"delete system",
	"drop database",
	"> /dev/null",
}

var ErrOutsideWorkspace = errors.New("path outside workspace")

// Policy guards where generated code may be written and which phrases a
// command may not contain. A zero Workspace allows any target path.
type Policy struct {
	Workspace string
	Blocked   []string
}

// NewPolicy returns a policy rooted at workspace. The workspace must be
// absolute; symlinks in it are resolved once here.
func NewPolicy(workspace string, blocked []string) (*Policy, error) {
	p := &Policy{Blocked: blocked}
	workspace = strings.TrimSpace(workspace)
	if workspace == "" {
		return p, nil
	}
	if !filepath.IsAbs(workspace) {
		return nil, fmt.Errorf("workspace must be an absolute path: %s", workspace)
	}
	root, err := realPath(filepath.Clean(workspace))
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	p.Workspace = root
	return p, nil
}

// TargetPath returns the path a write to filePath should use. Relative
// paths are joined to the workspace. The resolved target, following any
// symlinks in existing ancestors, must stay inside the workspace.
func (p *Policy) TargetPath(filePath string) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", fmt.Errorf("file path is empty")
	}
	if p.Workspace == "" {
		return filepath.Clean(filePath), nil
	}

	target := filePath
	if !filepath.IsAbs(target) {
		target = filepath.Join(p.Workspace, target)
	}
	target = filepath.Clean(target)

	resolved, err := realPath(target)
	if err != nil {
		return "", err
	}
	if !within(resolved, p.Workspace) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, filePath)
	}
	return target, nil
}

// Screen reports the first blocked phrase found in command, ignoring case.
func (p *Policy) Screen(command string) (string, bool) {
	lower := strings.ToLower(command)
	for _, phrase := range p.Blocked {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase, true
		}
	}
	return "", false
}

// realPath resolves symlinks in path. A file that does not exist yet is
// resolved through its nearest existing ancestor.
func realPath(path string) (string, error) {
	var missing []string
	dir := path
	for {
		real, err := filepath.EvalSymlinks(dir)
		if err == nil {
			parts := append([]string{real}, missing...)
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", dir, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
