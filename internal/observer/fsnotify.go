package observer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"s3mirror/internal/mirror"
)

// ErrWatcherClosed is returned by Run when the backend stops delivering events.
var ErrWatcherClosed = errors.New("watcher closed")

// eventBufferSize is the capacity of the notification channel. Sends block
// when it is full; nothing is dropped.
const eventBufferSize = 64

// FSNotifyObserver watches the root with fsnotify, adding a watch for every
// directory as it appears since fsnotify is not recursive.
type FSNotifyObserver struct {
	root    string
	watcher *fsnotify.Watcher
	tr      *translator
	out     chan mirror.Notification
	logger  mirror.Logger
}

var _ mirror.Observer = (*FSNotifyObserver)(nil)

// NewFSNotifyObserver creates an observer for root. Call Start before Run.
func NewFSNotifyObserver(root string, logger mirror.Logger) *FSNotifyObserver {
	return &FSNotifyObserver{
		root:   root,
		tr:     newTranslator(root, logger),
		out:    make(chan mirror.Notification, eventBufferSize),
		logger: logger,
	}
}

// Start registers watches on the root and every directory below it.
func (o *FSNotifyObserver) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	dirs, err := o.tr.seed()
	if err != nil {
		watcher.Close()
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Release the watches added so far.
			watcher.Close()
			return fmt.Errorf("fsnotify add watch %s: %w", dir, err)
		}
	}

	o.watcher = watcher
	o.tr.watch = watcher.Add
	o.logger.Info("watching directory", "root", o.root, "backend", "fsnotify", "dirs", len(dirs))
	return nil
}

// Run forwards events until ctx is cancelled or the watcher fails.
func (o *FSNotifyObserver) Run(ctx context.Context) error {
	defer close(o.out)
	if o.watcher == nil {
		return fmt.Errorf("observer not started")
	}
	defer o.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-o.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			for _, n := range o.handleEvent(event) {
				select {
				case o.out <- n:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

		case err, ok := <-o.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				o.logger.Error("watcher queue overflowed, events lost", "root", o.root, "error", err)
				continue
			}
			o.logger.Warn("watcher error", "error", err)
		}
	}
}

// Notifications returns the ordered notification stream.
func (o *FSNotifyObserver) Notifications() <-chan mirror.Notification {
	return o.out
}

func (o *FSNotifyObserver) handleEvent(event fsnotify.Event) []mirror.Notification {
	switch {
	case event.Has(fsnotify.Create):
		return o.tr.created(event.Name)

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		notes := o.tr.removed(event.Name)
		for _, n := range notes {
			if n.IsDir {
				// Deleted directories drop their watch on their own; renamed
				// ones keep it under the new name.
				if err := o.watcher.Remove(n.Path); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
					o.logger.Debug("remove watch", "path", n.Path, "error", err)
				}
			}
		}
		return notes

	case event.Has(fsnotify.Write):
		return o.tr.modified(event.Name)

	default:
		// Chmod only.
		return nil
	}
}
