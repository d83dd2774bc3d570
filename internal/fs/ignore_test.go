package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIgnoreMatcher(t *testing.T) {
	t.Run("skips blank lines, comments and invalid patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"", "  ", "# comment", "*.log", "[unclosed"})
		require.Equal(t, 1, m.Len())
		assert.Equal(t, "*.log", m.patterns[0].pattern)
	})

	t.Run("classifies path vs segment patterns", func(t *testing.T) {
		t.Parallel()
		m := NewIgnoreMatcher([]string{"*.log", "build/output", "/tmp/"})
		require.Equal(t, 3, m.Len())
		assert.False(t, m.patterns[0].matchPath)
		assert.True(t, m.patterns[1].matchPath)
		assert.False(t, m.patterns[2].matchPath, "leading and trailing slashes are trimmed")
	})
}

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []string
		relativePath string
		want         bool
	}{
		{name: "segment glob matches file in root", patterns: []string{"*.log"}, relativePath: "app.log", want: true},
		{name: "segment glob matches file in subdirectory", patterns: []string{"*.log"}, relativePath: "sub/app.log", want: true},
		{name: "segment glob does not match different extension", patterns: []string{"*.log"}, relativePath: "app.txt", want: false},
		{name: "exact name matches", patterns: []string{".DS_Store"}, relativePath: "sub/.DS_Store", want: true},
		{name: "directory name ignores descendants", patterns: []string{"node_modules"}, relativePath: "web/node_modules/pkg/index.js", want: true},
		{name: "path pattern matches exact relative path", patterns: []string{"build/output"}, relativePath: "build/output", want: true},
		{name: "path pattern matches descendants", patterns: []string{"build/output"}, relativePath: "build/output/bin/app", want: true},
		{name: "path pattern does not match wrong path", patterns: []string{"build/output"}, relativePath: "src/output", want: false},
		{name: "path pattern with glob", patterns: []string{"build/*.o"}, relativePath: "build/main.o", want: true},
		{name: "double star matches any depth", patterns: []string{"**/cache/*.tmp"}, relativePath: "a/b/cache/x.tmp", want: true},
		{name: "double star needs the fixed segment", patterns: []string{"**/cache/*.tmp"}, relativePath: "a/b/x.tmp", want: false},
		{name: "question mark wildcard", patterns: []string{"?.txt"}, relativePath: "a.txt", want: true},
		{name: "question mark does not match multiple chars", patterns: []string{"?.txt"}, relativePath: "ab.txt", want: false},
		{name: "character class", patterns: []string{"*.[oa]"}, relativePath: "main.o", want: true},
		{name: "brace alternatives", patterns: []string{"*.{swp,swx}"}, relativePath: "notes.swx", want: true},
		{name: "os separators are normalized", patterns: []string{"build/*.o"}, relativePath: filepath.Join("build", "main.o"), want: true},
		{name: "no patterns matches nothing", patterns: nil, relativePath: "anything.txt", want: false},
		{name: "empty string path", patterns: []string{"*"}, relativePath: "", want: false},
		{name: "multiple patterns second matches", patterns: []string{"*.log", "*.tmp"}, relativePath: "data.tmp", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewIgnoreMatcher(tt.patterns)
			assert.Equal(t, tt.want, m.Match(tt.relativePath), "Match(%q)", tt.relativePath)
		})
	}
}

func TestParseIgnoreFile(t *testing.T) {
	t.Run("reads patterns from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), IgnoreFileName)
		require.NoError(t, os.WriteFile(path, []byte("*.log\n# comment\n\n*.tmp\nbuild/output\n"), 0644))

		patterns, err := ParseIgnoreFile(path)
		require.NoError(t, err)
		assert.Len(t, patterns, 5, "raw lines include blanks and comments")
		assert.Equal(t, 3, NewIgnoreMatcher(patterns).Len())
	})

	t.Run("returns nil for missing file", func(t *testing.T) {
		t.Parallel()
		patterns, err := ParseIgnoreFile("/nonexistent/" + IgnoreFileName)
		require.NoError(t, err)
		assert.Nil(t, patterns)
	})
}

func TestLoadIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("*.tmp\n"), 0644))

	m, err := LoadIgnoreMatcher(root, []string{"*.log"})
	require.NoError(t, err)
	assert.True(t, m.Match("a.log"))
	assert.True(t, m.Match("b.tmp"))
	assert.False(t, m.Match("c.txt"))
}
