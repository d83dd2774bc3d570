package observer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rjeczalik/notify"

	"s3mirror/internal/mirror"
)

// NotifyObserver watches the root with rjeczalik/notify using its native
// recursive "root/..." watch.
type NotifyObserver struct {
	root   string
	raw    chan notify.EventInfo
	tr     *translator
	out    chan mirror.Notification
	logger mirror.Logger
}

var _ mirror.Observer = (*NotifyObserver)(nil)

// NewNotifyObserver creates an observer for root. Call Start before Run.
func NewNotifyObserver(root string, logger mirror.Logger) *NotifyObserver {
	return &NotifyObserver{
		root:   root,
		tr:     newTranslator(root, logger),
		out:    make(chan mirror.Notification, eventBufferSize),
		logger: logger,
	}
}

// Start registers the recursive watch.
func (o *NotifyObserver) Start() error {
	dirs, err := o.tr.seed()
	if err != nil {
		return err
	}

	raw := make(chan notify.EventInfo, eventBufferSize)
	recursivePath := filepath.Join(o.root, "...")
	if err := notify.Watch(recursivePath, raw, notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return fmt.Errorf("notify watch %s: %w", o.root, err)
	}

	o.raw = raw
	o.logger.Info("watching directory", "root", o.root, "backend", "notify", "dirs", len(dirs))
	return nil
}

// Run forwards events until ctx is cancelled.
func (o *NotifyObserver) Run(ctx context.Context) error {
	defer close(o.out)
	if o.raw == nil {
		return fmt.Errorf("observer not started")
	}
	defer notify.Stop(o.raw)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-o.raw:
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
		}
	}
}

// Notifications returns the ordered notification stream.
func (o *NotifyObserver) Notifications() <-chan mirror.Notification {
	return o.out
}

func (o *NotifyObserver) handleEvent(event notify.EventInfo) []mirror.Notification {
	path := event.Path()
	switch event.Event() {
	case notify.Create:
		return o.tr.created(path)
	case notify.Write:
		return o.tr.modified(path)
	case notify.Remove:
		return o.tr.removed(path)
	case notify.Rename:
		// Both halves of a move arrive as Rename on some platforms.
		return o.tr.renamed(path)
	default:
		return nil
	}
}
