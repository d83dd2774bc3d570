package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
)

// Outcome is the result of executing one intent.
type Outcome struct {
	Intent Intent
	Key    string
	// Bytes is the number of source bytes read for file uploads.
	Bytes int64
	Err   error
}

// OK reports whether the intent fully succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Executor performs the remote side effects of an intent: the object-store
// mutation first and, only if that succeeded, the metadata-index mutation.
type Executor struct {
	settings  Settings
	mapper    KeyMapper
	store     ObjectStore
	index     MetadataIndex
	files     FileSource
	encryptor Encryptor
	logger    Logger
	clock     clockwork.Clock
}

// NewExecutor creates an Executor. encryptor may be nil.
func NewExecutor(settings Settings, store ObjectStore, index MetadataIndex, files FileSource, encryptor Encryptor, logger Logger, clock clockwork.Clock) *Executor {
	return &Executor{
		settings:  settings,
		mapper:    settings.Mapper(),
		store:     store,
		index:     index,
		files:     files,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
	}
}

// Execute runs one intent to completion and reports its outcome. It never
// panics and never returns early on shutdown: remote calls use a context that
// ignores ctx's cancellation so an in-flight intent always finishes.
func (e *Executor) Execute(ctx context.Context, intent Intent) (out Outcome) {
	out.Intent = intent
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic executing %s for %s: %v", intent.Kind, intent.LocalPath, r)
		}
		e.report(out)
	}()

	ctx = context.WithoutCancel(ctx)

	if intent.IsDir != intent.Kind.isDirKind() {
		out.Err = fmt.Errorf("%w: %s for %s", ErrInconsistentIntent, intent.Kind, intent.LocalPath)
		return out
	}

	key, err := e.mapper.Key(intent.LocalPath, intent.IsDir)
	if err != nil {
		out.Err = fmt.Errorf("mapping key: %w", err)
		return out
	}
	out.Key = key

	switch intent.Kind {
	case FileUpserted:
		out.Bytes, out.Err = e.upsertFile(ctx, intent.LocalPath, key)
	case FileRemoved:
		out.Err = e.removeFile(ctx, key)
	case DirectoryCreated:
		if err := e.store.PutMarker(ctx, key); err != nil {
			out.Err = &StoreError{Op: "put-marker", Key: key, Err: err}
		}
	case DirectoryRemoved:
		if err := e.store.DeleteObject(ctx, key); err != nil {
			out.Err = &StoreError{Op: "delete-marker", Key: key, Err: err}
		}
	default:
		out.Err = fmt.Errorf("unknown intent kind %d for %s", intent.Kind, intent.LocalPath)
	}
	return out
}

func (e *Executor) upsertFile(ctx context.Context, path, key string) (int64, error) {
	f, err := e.files.Open(path)
	if err != nil {
		return 0, &LocalReadError{Path: path, Err: err}
	}
	defer f.Close()

	src := &readTracker{r: f}
	var body io.Reader = src
	var encErr error
	finish := func() {}
	if e.encryptor != nil {
		pr, pw := io.Pipe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			encErr = e.encryptor.Encrypt(src, pw)
			pw.CloseWithError(encErr)
		}()
		// encErr is safe to read once finish returns.
		var once sync.Once
		finish = func() {
			once.Do(func() {
				pr.Close()
				<-done
			})
		}
		defer finish()
		body = pr
	}

	err = e.store.PutObject(ctx, key, body)
	finish()
	if err != nil {
		if readErr := src.Err(); readErr != nil {
			return src.Count(), &LocalReadError{Path: path, Err: readErr}
		}
		// A closed pipe only means the store stopped reading.
		if encErr != nil && !errors.Is(encErr, io.ErrClosedPipe) {
			return src.Count(), &EncryptError{Path: path, Err: encErr}
		}
		return src.Count(), &StoreError{Op: "put", Key: key, Err: err}
	}

	if err := e.index.UpsertRecord(ctx, key, e.settings.Locator(key), e.clock.Now().UTC()); err != nil {
		return src.Count(), &PartialFailureError{Key: key, Err: &IndexError{Op: "upsert", Key: key, Err: err}}
	}
	return src.Count(), nil
}

func (e *Executor) removeFile(ctx context.Context, key string) error {
	if err := e.store.DeleteObject(ctx, key); err != nil {
		return &StoreError{Op: "delete", Key: key, Err: err}
	}
	if err := e.index.RemoveRecord(ctx, key); err != nil {
		return &PartialFailureError{Key: key, Err: &IndexError{Op: "remove", Key: key, Err: err}}
	}
	return nil
}

// report emits exactly one line per outcome.
func (e *Executor) report(out Outcome) {
	op := out.Intent.Kind.String()
	switch {
	case out.Err == nil && out.Intent.Kind == FileUpserted:
		e.logger.Info("synced", "op", op, "key", out.Key, "size", humanize.Bytes(uint64(out.Bytes)))
	case out.Err == nil:
		e.logger.Info("synced", "op", op, "key", out.Key)
	case IsPartialFailure(out.Err):
		e.logger.Warn("object synced but index is stale", "op", op, "key", out.Key, "path", out.Intent.LocalPath, "partial", true, "error", out.Err)
	default:
		e.logger.Error("sync failed", "op", op, "key", out.Key, "path", out.Intent.LocalPath, "error", out.Err)
	}
}

// readTracker remembers the first error returned by the local file so that
// a failed upload can be attributed to the source rather than the store.
type readTracker struct {
	r  io.Reader
	mu sync.Mutex
	n  int64
	// err excludes io.EOF.
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.mu.Lock()
	t.n += int64(n)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
	return n, err
}

func (t *readTracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *readTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}
