package tool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy_RejectsRelativeWorkspace(t *testing.T) {
	_, err := NewPolicy("workspace", nil)
	require.Error(t, err)

	p, err := NewPolicy("", nil)
	require.NoError(t, err)
	got, err := p.TargetPath("out/app.py")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "app.py"), got)
}

func TestPolicy_TargetPath(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "pkg"), 0o755))
	p, err := NewPolicy(ws, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		outside bool
	}{
		{name: "relative", path: "pkg/app.py", want: filepath.Join(ws, "pkg", "app.py")},
		{name: "missing parents", path: "new/dir/app.py", want: filepath.Join(ws, "new", "dir", "app.py")},
		{name: "absolute inside", path: filepath.Join(ws, "app.py"), want: filepath.Join(ws, "app.py")},
		{name: "dot dot", path: "../escape.py", outside: true},
		{name: "absolute outside", path: filepath.Join(t.TempDir(), "x.py"), outside: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.TargetPath(tt.path)
			if tt.outside {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrOutsideWorkspace), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), got)
		})
	}

	_, err = p.TargetPath("  ")
	require.Error(t, err)
}

func TestPolicy_TargetPathSymlinkEscape(t *testing.T) {
	ws := t.TempDir()
	other := t.TempDir()
	require.NoError(t, os.Symlink(other, filepath.Join(ws, "link")))

	p, err := NewPolicy(ws, nil)
	require.NoError(t, err)
	_, err = p.TargetPath("link/generated.py")
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestPolicy_Screen(t *testing.T) {
	p := &Policy{Blocked: DefaultBlockedPhrases}

	phrase, ok := p.Screen("please rm -rf / now")
	assert.True(t, ok)
	assert.Equal(t, "rm -rf /", phrase)

	phrase, ok = p.Screen("DROP DATABASE users")
	assert.True(t, ok)
	assert.Equal(t, "drop database", phrase)

	_, ok = p.Screen("create a function to fetch weather data")
	assert.False(t, ok)
}
