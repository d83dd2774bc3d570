package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"s3mirror/internal/config"
	"s3mirror/internal/encryption"
	"s3mirror/internal/fs"
	"s3mirror/internal/index"
	"s3mirror/internal/mirror"
	"s3mirror/internal/objectstore"
	"s3mirror/internal/observer"
)

// MirrorApp is the application layer between the CLI and the sync pipeline.
// It constructs all dependencies from config, owns their lifecycle and runs
// the pipeline. The caller must call Close when done.
type MirrorApp struct {
	cfg       *config.Config
	settings  mirror.Settings
	store     objectstore.Store
	index     *index.SQLIndex
	encryptor encryption.KeyedEncryptor
	pipeline  *mirror.Pipeline
	logger    mirror.Logger
	op        *Operation
	lock      *instanceLock
	logFile   io.Closer
}

// Options tune how the app is built.
type Options struct {
	Log LogOptions
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// NewMirrorApp creates a fully wired MirrorApp from the given config.
// Every failure here is fatal: the pipeline never starts.
func NewMirrorApp(ctx context.Context, cfg *config.Config, opts Options) (_ *MirrorApp, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := fs.CheckRoot(cfg.RootDir); err != nil {
		return nil, fmt.Errorf("checking root directory: %w", err)
	}

	settings, err := mirror.NewSettings(cfg.RootDir, cfg.ObjectStore.Bucket, cfg.ObjectStore.Region, cfg.ObjectStore.Endpoint)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	a := &MirrorApp{cfg: cfg, settings: settings, op: NewOperation("run", clock.Now())}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	slogger, logFile, err := newLogger(cfg.LogDir, a.op.ID, opts.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a.logFile = logFile
	a.logger = &slogAdapter{l: slogger}

	a.lock, err = acquireLock(cfg.BaseDir, settings.Root)
	if err != nil {
		return nil, err
	}

	a.store, err = objectstore.NewStoreFromConfig(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	if err := a.store.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("object store not reachable: %w", err)
	}

	a.index, err = index.NewIndexFromConfig(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("creating metadata index: %w", err)
	}
	if err := a.index.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("metadata index schema out of date (run `s3mirror index migrate`): %w", err)
	}

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if a.encryptor != nil && !a.encryptor.IsConfigured() {
		return nil, fmt.Errorf("encryption keys missing (run `s3mirror keys init`)")
	}

	ignore, err := fs.LoadIgnoreMatcher(settings.Root, cfg.Filesystem.Ignore)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	obs, err := observer.NewObserverFromConfig(cfg.Observer, settings.Root, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating observer: %w", err)
	}

	var enc mirror.Encryptor
	if a.encryptor != nil {
		enc = a.encryptor
	}
	classifier := mirror.NewClassifier(settings, a.logger).WithFilter(ignore)
	executor := mirror.NewExecutor(settings, a.store, a.index, fs.NewOSFiles(), enc, a.logger, clock)
	a.pipeline = mirror.NewPipeline(obs, classifier, executor, a.logger)

	a.logger.Info("mirror configured",
		"root", settings.Root,
		"bucket", settings.Bucket,
		"region", settings.Region,
		"store", cfg.ObjectStore.Type,
		"index", a.index.Driver(),
		"observer", cfg.Observer.Type,
		"encrypted", enc != nil,
		"ignore_patterns", ignore.Len(),
	)
	return a, nil
}

// Settings returns the immutable pipeline settings.
func (a *MirrorApp) Settings() mirror.Settings {
	return a.settings
}

// Run mirrors the root until ctx is cancelled. Cancellation is a clean stop.
func (a *MirrorApp) Run(ctx context.Context) error {
	start := time.Now()
	err := a.pipeline.Run(ctx)
	a.op.Finish(err)

	stats := a.pipeline.Stats()
	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"status", a.op.Status,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"synced", stats.Succeeded,
		"failed", stats.Failed,
	)
	return err
}

// Stats returns the pipeline counters. Call it after Run returns.
func (a *MirrorApp) Stats() mirror.Stats {
	return a.pipeline.Stats()
}

// Close releases the index, the instance lock and the log file.
func (a *MirrorApp) Close() error {
	var errs []error
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index: %w", err))
		}
	}
	if err := a.lock.release(); err != nil {
		errs = append(errs, err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// OpenIndex opens the configured metadata index for maintenance commands.
// Migrations are not applied; use SQLIndex.Migrate.
func OpenIndex(cfg *config.Config) (*index.SQLIndex, error) {
	idxCfg := cfg.Index
	idxCfg.AutoMigrate = false
	idx, err := index.NewIndexFromConfig(idxCfg)
	if err != nil {
		return nil, fmt.Errorf("opening metadata index: %w", err)
	}
	return idx, nil
}

// KeyFor returns the remote key and locator a local path maps to.
func KeyFor(cfg *config.Config, localPath string, isDir bool) (key, locator string, err error) {
	settings, err := mirror.NewSettings(cfg.RootDir, cfg.ObjectStore.Bucket, cfg.ObjectStore.Region, cfg.ObjectStore.Endpoint)
	if err != nil {
		return "", "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", "", fmt.Errorf("resolving path: %w", err)
	}
	key, err = settings.Mapper().Key(abs, isDir)
	if err != nil {
		return "", "", err
	}
	return key, settings.Locator(key), nil
}
