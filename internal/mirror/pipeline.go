package mirror

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Stats counts what a pipeline run did.
type Stats struct {
	Received  int
	Dropped   int
	Succeeded int
	Failed    int
	// Partial counts failures where the object store changed but the index
	// did not. They are also included in Failed.
	Partial int
}

// Pipeline connects an Observer to the Classifier and Executor. Notifications
// are handled one at a time, in arrival order, each to completion.
type Pipeline struct {
	observer   Observer
	classifier *Classifier
	executor   *Executor
	logger     Logger
	stats      Stats
}

// NewPipeline creates a Pipeline from its collaborators.
func NewPipeline(observer Observer, classifier *Classifier, executor *Executor, logger Logger) *Pipeline {
	return &Pipeline{
		observer:   observer,
		classifier: classifier,
		executor:   executor,
		logger:     logger,
	}
}

// Run starts the observer and processes notifications until ctx is cancelled
// or the observer stops. Cancellation lets the in-flight intent finish and
// then returns nil. Only observer failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.observer.Start(); err != nil {
		return fmt.Errorf("starting observer: %w", err)
	}
	p.logger.Info("pipeline started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := p.observer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return p.consume(gctx)
	})

	err := g.Wait()
	p.logger.Info("pipeline stopped",
		"received", p.stats.Received,
		"dropped", p.stats.Dropped,
		"succeeded", p.stats.Succeeded,
		"failed", p.stats.Failed,
		"partial", p.stats.Partial,
	)
	if err != nil {
		return fmt.Errorf("observer: %w", err)
	}
	return nil
}

func (p *Pipeline) consume(ctx context.Context) error {
	notifications := p.observer.Notifications()
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			p.Handle(ctx, n)
		}
	}
}

// Handle classifies and executes a single notification. It returns false
// when the notification was dropped.
func (p *Pipeline) Handle(ctx context.Context, n Notification) (Outcome, bool) {
	p.stats.Received++

	intent, ok := p.classifier.Classify(n)
	if !ok {
		p.stats.Dropped++
		p.logger.Debug("notification dropped", "type", string(n.Type), "path", n.Path, "dir", n.IsDir)
		return Outcome{}, false
	}

	out := p.executor.Execute(ctx, intent)
	switch {
	case out.OK():
		p.stats.Succeeded++
	case IsPartialFailure(out.Err):
		p.stats.Failed++
		p.stats.Partial++
	default:
		p.stats.Failed++
	}
	return out, true
}

// Stats returns the counters of the last run. Call it after Run returns.
func (p *Pipeline) Stats() Stats {
	return p.stats
}
