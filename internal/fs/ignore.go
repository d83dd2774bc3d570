package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"s3mirror/internal/mirror"
)

// IgnoreFileName is read from the watched root in addition to configured
// patterns.
const IgnoreFileName = ".s3mirrorignore"

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against each path segment
}

// IgnoreMatcher checks file paths against a set of doublestar patterns.
// Patterns without '/' match any single path segment, so "node_modules"
// ignores everything below such a directory. Patterns with '/' match the
// relative path from the root or any of its ancestor directories, and may
// use "**".
type IgnoreMatcher struct {
	patterns []ignorePattern
}

var _ mirror.PathFilter = (*IgnoreMatcher)(nil)

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines, lines starting with '#' and invalid patterns are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.TrimPrefix(raw, "/")
		raw = strings.TrimSuffix(raw, "/")
		if raw == "" || !doublestar.ValidatePattern(raw) {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := strings.Trim(filepath.ToSlash(relativePath), "/")
	segments := strings.Split(normalized, "/")

	for _, p := range m.patterns {
		if p.matchPath {
			for prefix := normalized; prefix != "." && prefix != ""; prefix = path.Dir(prefix) {
				if doublestar.MatchUnvalidated(p.pattern, prefix) {
					return true
				}
			}
			continue
		}
		for _, seg := range segments {
			if doublestar.MatchUnvalidated(p.pattern, seg) {
				return true
			}
		}
	}
	return false
}

// Len returns the number of active patterns.
func (m *IgnoreMatcher) Len() int {
	return len(m.patterns)
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}

// LoadIgnoreMatcher combines configured patterns with the root's ignore file.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(configured)+len(fromFile))
	all = append(all, configured...)
	all = append(all, fromFile...)
	return NewIgnoreMatcher(all), nil
}
