package observer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"s3mirror/internal/mirror"
)

// translator turns backend events into mirror notifications. It remembers
// every directory under the root, because a deleted path can no longer be
// stat'ed to tell whether it was a directory.
type translator struct {
	root   string
	dirs   map[string]struct{}
	logger mirror.Logger

	// watch, when set, is called for each new directory before its entries
	// are read, so nothing created inside it is missed.
	watch func(dir string) error
}

func newTranslator(root string, logger mirror.Logger) *translator {
	return &translator{
		root:   filepath.Clean(root),
		dirs:   make(map[string]struct{}),
		logger: logger,
	}
}

// seed records the directories that already exist under the root.
func (t *translator) seed() ([]string, error) {
	info, err := os.Stat(t.root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", t.root)
	}

	var dirs []string
	err = filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}
		if d.IsDir() {
			dirs = append(dirs, path)
			if path != t.root {
				t.dirs[path] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// created handles a path that appeared. A new directory yields a notification
// for itself and for everything already inside it, parents first, since
// entries created before the directory was watched produce no events. An
// entry created between the watch and the read is reported twice.
func (t *translator) created(path string) []mirror.Notification {
	path = filepath.Clean(path)
	if path == t.root {
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		// Gone again; the removal event follows.
		t.logger.Debug("created path vanished", "path", path)
		return nil
	}
	if !info.IsDir() {
		if !mirrorable(path, info.Mode()) {
			return nil
		}
		return []mirror.Notification{{Type: mirror.Created, Path: path}}
	}

	var out []mirror.Notification
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			t.logger.Debug("walking new directory", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			t.dirs[p] = struct{}{}
			if t.watch != nil {
				if err := t.watch(p); err != nil {
					t.logger.Warn("failed to watch new directory", "path", p, "error", err)
				}
			}
			out = append(out, mirror.Notification{Type: mirror.Created, Path: p, IsDir: true})
			return nil
		}
		if mirrorable(p, d.Type()) {
			out = append(out, mirror.Notification{Type: mirror.Created, Path: p})
		}
		return nil
	})
	return out
}

// modified handles a content change.
func (t *translator) modified(path string) []mirror.Notification {
	path = filepath.Clean(path)
	return []mirror.Notification{{Type: mirror.Modified, Path: path, IsDir: t.isDir(path)}}
}

// removed handles a path that disappeared. Known directories are forgotten
// together with their subdirectories, deepest first.
func (t *translator) removed(path string) []mirror.Notification {
	path = filepath.Clean(path)
	if path == t.root {
		t.logger.Warn("watched root removed", "path", path)
		return nil
	}

	if !t.isDir(path) {
		return []mirror.Notification{{Type: mirror.Deleted, Path: path}}
	}

	prefix := path + string(filepath.Separator)
	var nested []string
	for d := range t.dirs {
		if strings.HasPrefix(d, prefix) {
			nested = append(nested, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(nested)))

	out := make([]mirror.Notification, 0, len(nested)+1)
	for _, d := range nested {
		delete(t.dirs, d)
		out = append(out, mirror.Notification{Type: mirror.Deleted, Path: d, IsDir: true})
	}
	delete(t.dirs, path)
	return append(out, mirror.Notification{Type: mirror.Deleted, Path: path, IsDir: true})
}

// renamed handles an event that only says the name changed. Whether it is the
// old or the new name is decided by looking at the filesystem.
func (t *translator) renamed(path string) []mirror.Notification {
	if _, err := os.Lstat(path); err == nil {
		return t.created(path)
	}
	return t.removed(path)
}

// isDir reports whether path is a known directory.
func (t *translator) isDir(path string) bool {
	_, ok := t.dirs[filepath.Clean(path)]
	return ok
}

// mirrorable reports whether a non-directory entry can be uploaded: regular
// files and symlinks to regular files.
func mirrorable(path string, mode fs.FileMode) bool {
	if mode.IsRegular() {
		return true
	}
	if mode&fs.ModeSymlink == 0 {
		return false
	}
	target, err := os.Stat(path)
	return err == nil && target.Mode().IsRegular()
}
