package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"s3mirror/internal/mirror"
)

// FileSystemStore treats a local directory as a bucket. Keys map to paths
// below <root>/<bucket>:
//
//	<root>/
//	  <bucket>/
//	    a/b.txt
//	    a/.keep
//
// Writes go through a temp file and an atomic rename.
type FileSystemStore struct {
	root      string
	bucketDir string
}

// NewFileSystemStore creates a store rooted at root for the named bucket.
func NewFileSystemStore(root, bucket string) (*FileSystemStore, error) {
	bucketDir := filepath.Join(root, bucket)
	if err := os.MkdirAll(bucketDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	return &FileSystemStore{
		root:      root,
		bucketDir: bucketDir,
	}, nil
}

// PutObject writes r to the file for key, replacing any previous content.
func (s *FileSystemStore) PutObject(_ context.Context, key string, r io.Reader) error {
	dest, err := s.pathFor(key)
	if err != nil {
		return err
	}
	return s.writeFile(dest, r)
}

// PutMarker writes an empty file for key.
func (s *FileSystemStore) PutMarker(ctx context.Context, key string) error {
	return s.PutObject(ctx, key, strings.NewReader(""))
}

// DeleteObject removes the file for key and prunes parent directories left
// empty, mirroring how prefixes vanish in a real bucket.
func (s *FileSystemStore) DeleteObject(_ context.Context, key string) error {
	dest, err := s.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove object: %w", err)
	}

	for dir := filepath.Dir(dest); dir != s.bucketDir; dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break // not empty, or already gone
		}
	}
	return nil
}

// Get reads the object for key. Used by tests and the CLI.
func (s *FileSystemStore) Get(key string) ([]byte, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// ValidateSetup verifies that the bucket directory is accessible.
func (s *FileSystemStore) ValidateSetup(context.Context) error {
	info, err := os.Stat(s.bucketDir)
	if err != nil {
		return fmt.Errorf("bucket directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("bucket path is not a directory: %s", s.bucketDir)
	}
	return nil
}

func (s *FileSystemStore) pathFor(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	p := filepath.Join(s.bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return p, nil
}

// writeFile writes data from r to destPath using atomic write (temp file + rename).
func (s *FileSystemStore) writeFile(destPath string, r io.Reader) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements mirror.ObjectStore
var _ mirror.ObjectStore = (*FileSystemStore)(nil)
