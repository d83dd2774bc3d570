package objectstore

import (
	"context"
	"fmt"

	"s3mirror/internal/config"
	"s3mirror/internal/mirror"
)

// Store is a mirror.ObjectStore that can verify its own setup at startup.
type Store interface {
	mirror.ObjectStore
	ValidateSetup(ctx context.Context) error
}

// NewStoreFromConfig creates a Store implementation based on the object store config type.
func NewStoreFromConfig(ctx context.Context, cfg config.ObjectStoreConfig) (Store, error) {
	switch cfg.Type {
	case "s3", "":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 object store requires bucket to be set")
		}
		return NewS3StoreFromConfig(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem object store requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot, cfg.Bucket)
	case "memory":
		return NewMemoryStore(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown object store type: %s", cfg.Type)
	}
}
