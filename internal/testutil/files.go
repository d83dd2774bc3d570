package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"s3mirror/internal/mirror"
)

// MemoryFiles is an in-memory mirror.FileSource.
type MemoryFiles struct {
	mu       sync.Mutex
	files    map[string][]byte
	readErrs map[string]error
}

var _ mirror.FileSource = (*MemoryFiles)(nil)

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{
		files:    make(map[string][]byte),
		readErrs: make(map[string]error),
	}
}

// AddFile adds or replaces a file.
func (m *MemoryFiles) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
}

// Remove deletes a file, simulating it vanishing before upload.
func (m *MemoryFiles) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// FailReadAfterContent makes reads of path return err once the content
// has been read, simulating an I/O error mid-stream.
func (m *MemoryFiles) FailReadAfterContent(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs[path] = err
}

func (m *MemoryFiles) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}

	var r io.Reader = bytes.NewReader(content)
	if err, ok := m.readErrs[path]; ok {
		r = io.MultiReader(r, errReader{err: err})
	}
	return io.NopCloser(r), nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
