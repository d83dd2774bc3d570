package testutil

import (
	"context"

	"s3mirror/internal/mirror"
)

// ScriptedObserver replays a fixed list of notifications, then either closes
// its channel or blocks until cancelled.
type ScriptedObserver struct {
	Notes []mirror.Notification
	// StartErr is returned by Start.
	StartErr error
	// Hold keeps Run blocked after the script until ctx is cancelled.
	Hold bool

	out     chan mirror.Notification
	started bool
}

var _ mirror.Observer = (*ScriptedObserver)(nil)

func NewScriptedObserver(notes ...mirror.Notification) *ScriptedObserver {
	return &ScriptedObserver{
		Notes: notes,
		out:   make(chan mirror.Notification),
	}
}

func (o *ScriptedObserver) Start() error {
	if o.StartErr != nil {
		return o.StartErr
	}
	o.started = true
	return nil
}

func (o *ScriptedObserver) Run(ctx context.Context) error {
	defer close(o.out)
	for _, n := range o.Notes {
		select {
		case o.out <- n:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if o.Hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (o *ScriptedObserver) Notifications() <-chan mirror.Notification {
	return o.out
}

// Started reports whether Start succeeded.
func (o *ScriptedObserver) Started() bool {
	return o.started
}
