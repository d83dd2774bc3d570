package index

import (
	"fmt"
	"os"
	"path/filepath"

	"s3mirror/internal/config"
)

// dbFileName is the SQLite file created inside IndexConfig.DataDir.
const dbFileName = "s3mirror.db"

// NewIndexFromConfig creates a SQLIndex based on the index config type.
// In-memory indexes are always migrated; other types only when AutoMigrate is set.
func NewIndexFromConfig(cfg config.IndexConfig) (*SQLIndex, error) {
	var (
		idx     *SQLIndex
		err     error
		migrate = cfg.AutoMigrate
	)

	switch cfg.Type {
	case "postgres", "":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres index")
		}
		idx, err = OpenPostgres(cfg.DSN)
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite index")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		idx, err = OpenSQLite(filepath.Join(cfg.DataDir, dbFileName))
	case "memory":
		idx, err = OpenSQLite(":memory:")
		migrate = true
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := idx.Migrate(); err != nil {
			idx.Close()
			return nil, fmt.Errorf("migrating index: %w", err)
		}
	}
	return idx, nil
}
