package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"s3mirror/internal/mirror"
)

// OSFiles opens local files for upload from the real filesystem.
type OSFiles struct{}

// NewOSFiles creates a FileSource backed by the os package.
func NewOSFiles() *OSFiles {
	return &OSFiles{}
}

// Open opens a regular file for reading. Directories and special files
// (devices, pipes, sockets) are refused; symlinks are followed.
func (OSFiles) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s", path)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s", path)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s", path)
	case !mode.IsRegular():
		return nil, fmt.Errorf("not a regular file: %s", path)
	}

	return os.Open(path)
}

// CheckRoot verifies that root exists and is a readable directory.
func CheckRoot(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root is not a directory: %s", absRoot)
	}

	d, err := os.Open(absRoot)
	if err != nil {
		return fmt.Errorf("root is not readable: %w", err)
	}
	defer d.Close()
	if _, err := d.Readdirnames(1); err != nil && err != io.EOF {
		return fmt.Errorf("root is not readable: %w", err)
	}
	return nil
}

// Compile-time check that OSFiles implements mirror.FileSource
var _ mirror.FileSource = (*OSFiles)(nil)
