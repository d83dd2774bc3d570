package mirror

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the capability the executor needs from the remote object
// storage backend. Every call is a single remote operation.
type ObjectStore interface {
	// PutObject streams r to the object named key, replacing any previous object.
	PutObject(ctx context.Context, key string, r io.Reader) error

	// PutMarker writes a zero-byte object under key.
	PutMarker(ctx context.Context, key string) error

	// DeleteObject removes the object named key. Deleting a missing object
	// is not an error.
	DeleteObject(ctx context.Context, key string) error
}

// Record is one row of the metadata index.
type Record struct {
	Key          string
	Locator      string
	LastModified time.Time
}

// MetadataIndex is the capability the executor needs from the metadata store.
type MetadataIndex interface {
	// UpsertRecord inserts or replaces the record for key in a single
	// statement (last write wins).
	UpsertRecord(ctx context.Context, key, locator string, modifiedAt time.Time) error

	// RemoveRecord deletes the record for key. Removing a missing record is
	// not an error.
	RemoveRecord(ctx context.Context, key string) error

	// FindRecord returns the record for key, or nil if none exists.
	FindRecord(ctx context.Context, key string) (*Record, error)
}

// FileSource opens local files for upload.
type FileSource interface {
	Open(path string) (io.ReadCloser, error)
}

// Encryptor encrypts upload streams. A nil Encryptor uploads plaintext.
type Encryptor interface {
	Encrypt(r io.Reader, w io.Writer) error
}

// Observer delivers an ordered stream of raw notifications for the watched
// tree, recursively.
type Observer interface {
	// Start registers the watch on the root. An error here is fatal: the
	// pipeline never starts.
	Start() error

	// Run pumps notifications until ctx is cancelled or the underlying
	// watcher fails. It closes the Notifications channel before returning
	// and releases the watch.
	Run(ctx context.Context) error

	// Notifications returns the ordered notification stream.
	Notifications() <-chan Notification
}
