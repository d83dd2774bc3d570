package mirror

import "path/filepath"

// PathFilter decides whether a root-relative, slash-separated path is
// excluded from mirroring.
type PathFilter interface {
	Match(relativePath string) bool
}

// Classifier turns raw notifications into sync intents.
type Classifier struct {
	mapper KeyMapper
	filter PathFilter
	logger Logger
}

// NewClassifier creates a Classifier scoped to the settings' root.
func NewClassifier(settings Settings, logger Logger) *Classifier {
	return &Classifier{mapper: settings.Mapper(), logger: logger}
}

// WithFilter makes the classifier drop paths matched by f.
func (c *Classifier) WithFilter(f PathFilter) *Classifier {
	c.filter = f
	return c
}

// Classify returns the intent for n, or false when the notification needs no
// remote action. Directory modifications, unknown types, filtered paths and
// paths outside the root are dropped.
func (c *Classifier) Classify(n Notification) (Intent, bool) {
	kind, ok := classifyKind(n)
	if !ok {
		if n.Type != Created && n.Type != Modified && n.Type != Deleted {
			c.logger.Warn("dropping notification", "type", string(n.Type), "path", n.Path, "error", ErrUnrecognizedNotification)
		}
		return Intent{}, false
	}

	rel, err := c.mapper.relative(n.Path)
	if err != nil {
		c.logger.Warn("dropping notification outside root", "type", string(n.Type), "path", n.Path)
		return Intent{}, false
	}

	if c.filter != nil && rel != "." && c.filter.Match(filepath.ToSlash(rel)) {
		c.logger.Debug("ignoring path", "path", n.Path)
		return Intent{}, false
	}

	return Intent{Kind: kind, LocalPath: n.Path, IsDir: n.IsDir}, true
}

func classifyKind(n Notification) (IntentKind, bool) {
	switch n.Type {
	case Created:
		if n.IsDir {
			return DirectoryCreated, true
		}
		return FileUpserted, true
	case Modified:
		if n.IsDir {
			return 0, false
		}
		return FileUpserted, true
	case Deleted:
		if n.IsDir {
			return DirectoryRemoved, true
		}
		return FileRemoved, true
	default:
		return 0, false
	}
}
