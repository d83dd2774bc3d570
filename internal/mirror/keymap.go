package mirror

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path does not lie under the watched root.
var ErrOutsideRoot = errors.New("path is outside the watched root")

// KeyMapper turns local paths into remote object keys.
// Keys are root-relative and use forward slashes. Directory keys carry the
// marker segment since the object store has no native directories.
type KeyMapper struct {
	Root   string
	Marker string
}

// Key returns the remote key for localPath. When isDir is true the key names
// the directory's marker object, e.g. "a/b/.keep".
func (m KeyMapper) Key(localPath string, isDir bool) (string, error) {
	rel, err := m.relative(localPath)
	if err != nil {
		return "", err
	}

	key := strings.Trim(filepath.ToSlash(rel), "/")
	if key == "." {
		key = ""
	}

	if !isDir {
		if key == "" {
			return "", fmt.Errorf("root cannot be mapped as a file: %s", localPath)
		}
		return key, nil
	}

	marker := m.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	if key == "" {
		return marker, nil
	}
	return key + "/" + marker, nil
}

func (m KeyMapper) relative(localPath string) (string, error) {
	if !filepath.IsAbs(localPath) {
		return "", fmt.Errorf("%w: not absolute: %s", ErrOutsideRoot, localPath)
	}
	rel, err := filepath.Rel(m.Root, filepath.Clean(localPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, localPath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, localPath)
	}
	return rel, nil
}
