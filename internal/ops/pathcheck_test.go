package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tango/internal/config"
	"github.com/hpungsan/tango/internal/errors"
)

// pathFixture is an allowed directory holding a vocabulary list, a nested
// directory, and symlinks pointing outside.
type pathFixture struct {
	allowed string
	outside string
	list    string // allowed/words.json
	nested  string // allowed/decks
}

func newPathFixture(t *testing.T) pathFixture {
	t.Helper()
	f := pathFixture{allowed: t.TempDir(), outside: t.TempDir()}
	f.list = filepath.Join(f.allowed, "words.json")
	f.nested = filepath.Join(f.allowed, "decks")
	require.NoError(t, os.WriteFile(f.list, []byte(`[]`), 0600))
	require.NoError(t, os.MkdirAll(f.nested, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(f.nested, "n5.json"), []byte(`[]`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(f.outside, "secret.json"), []byte(`[]`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(f.outside, "deck.xlsx"), []byte("PK"), 0600))
	return f
}

func (f pathFixture) symlink(t *testing.T, name, target string) string {
	t.Helper()
	link := filepath.Join(f.allowed, name)
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}
	return link
}

func TestValidatePath(t *testing.T) {
	f := newPathFixture(t)
	readLink := f.symlink(t, "linked.json", filepath.Join(f.outside, "secret.json"))
	writeLink := f.symlink(t, "linked.xlsx", filepath.Join(f.outside, "deck.xlsx"))

	restricted := config.DefaultConfig()
	restricted.AllowedPaths = []string{f.allowed, "relative/ignored"}

	unsafe := config.DefaultConfig()
	unsafe.AllowUnsafePaths = true

	tests := []struct {
		name string
		path string
		mode PathCheckMode
		cfg  *config.Config
		code errors.ErrorCode // empty: valid
	}{
		{"import list in allowed dir", f.list, PathCheckRead, restricted, ""},
		{"export workbook in allowed dir", filepath.Join(f.allowed, "all.xlsx"), PathCheckWrite, restricted, ""},
		{"extension is case-insensitive", filepath.Join(f.allowed, "ALL.XLSX"), PathCheckWrite, restricted, ""},
		{"empty path", "", PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"traversal", "../words.json", PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"mid-path traversal", f.allowed + "/../words.json", PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"export needs xlsx", filepath.Join(f.allowed, "all.json"), PathCheckWrite, restricted, errors.ErrInvalidRequest},
		{"import needs json", filepath.Join(f.allowed, "words.csv"), PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"no extension", filepath.Join(f.allowed, "words"), PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"outside allowed dirs", filepath.Join(f.outside, "secret.json"), PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"default config refuses tmp", filepath.Join(f.outside, "deck.xlsx"), PathCheckWrite, config.DefaultConfig(), errors.ErrInvalidRequest},
		{"nested read", filepath.Join(f.nested, "n5.json"), PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"nested write", filepath.Join(f.nested, "n5.xlsx"), PathCheckWrite, restricted, errors.ErrInvalidRequest},
		{"missing import list", filepath.Join(f.allowed, "missing.json"), PathCheckRead, restricted, errors.ErrNotFound},
		{"symlinked import list", readLink, PathCheckRead, restricted, errors.ErrInvalidRequest},
		{"symlinked export target", writeLink, PathCheckWrite, restricted, errors.ErrInvalidRequest},
		{"unsafe allows outside dirs", filepath.Join(f.outside, "secret.json"), PathCheckRead, unsafe, ""},
		{"unsafe allows nested write", filepath.Join(f.nested, "n5.xlsx"), PathCheckWrite, unsafe, ""},
		{"unsafe still checks existence", filepath.Join(f.outside, "missing.json"), PathCheckRead, unsafe, errors.ErrNotFound},
		{"unsafe still refuses symlinks", readLink, PathCheckRead, unsafe, errors.ErrInvalidRequest},
		{"unsafe still needs extension", filepath.Join(f.outside, "deck.csv"), PathCheckWrite, unsafe, errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.mode, tt.cfg)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}

func TestValidatePath_SymlinkedAllowedDir(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "words.json"), []byte(`[]`), 0600))

	link := filepath.Join(t.TempDir(), "vocab")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link}

	// The allowed entry resolves to its target; files are named by the real path.
	assert.NoError(t, ValidatePath(filepath.Join(target, "words.json"), PathCheckRead, cfg))
}

func TestContainsTraversal(t *testing.T) {
	tests := map[string]bool{
		"/home/user/words.json":    false,
		"../words.json":            true,
		"/home/../etc/words.json":  true,
		"./words.json":             false,
		"/home/user/.tango/a.xlsx": false,
		"n5..n4.json":              false,
		"/tmp/a/b/../c.xlsx":       true,
	}

	for path, want := range tests {
		assert.Equal(t, want, containsTraversal(path), path)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"web-dev", "web-dev"},
		{"data structures", "data structures"},
		{"oop/patterns", "oop-patterns"},
		{`oop\patterns`, "oop-patterns"},
		{"a..b", "a-b"},
		{"../../../etc/passwd", "etc-passwd"},
		{"/tmp/evil", "tmp-evil"},
		{"cat\x00egory", "category"},
		{"cat\x01\x02egory", "category"},
		{"../../..", "unnamed"},
		{"///", "unnamed"},
		{"日本語-語彙", "日本語-語彙"},
		{"a---b", "a-b"},
		{"--general--", "general"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeForFilename(tt.input), "input %q", tt.input)
	}
}
