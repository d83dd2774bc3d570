package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"s3mirror/internal/index/migrations"
	"s3mirror/internal/mirror"
)

// TableName is the metadata table shared by all SQL backends.
const TableName = "s3_links"

// operationTimeout bounds a single index statement.
const operationTimeout = 10 * time.Second

// linkRow is the s3_links row as stored.
type linkRow struct {
	FileName   string    `db:"file_name"`
	S3URL      string    `db:"s3_url"`
	UploadedAt time.Time `db:"uploaded_at"`
}

func (r linkRow) record() *mirror.Record {
	return &mirror.Record{Key: r.FileName, Locator: r.S3URL, LastModified: r.UploadedAt}
}

// SQLIndex implements mirror.MetadataIndex on PostgreSQL or SQLite.
// Statements are written with '?' placeholders and rebound per driver.
type SQLIndex struct {
	db     *sqlx.DB
	driver string
}

// OpenPostgres connects to PostgreSQL. The connection is established lazily.
func OpenPostgres(dsn string) (*SQLIndex, error) {
	db, err := sqlx.Open(migrations.Postgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLIndex{db: db, driver: migrations.Postgres}, nil
}

// OpenSQLite opens a SQLite database. path can be a file path or ":memory:".
func OpenSQLite(path string) (*SQLIndex, error) {
	db, err := sqlx.Open(migrations.SQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLIndex{db: db, driver: migrations.SQLite}, nil
}

// Driver returns the database/sql driver name.
func (s *SQLIndex) Driver() string {
	return s.driver
}

// Migrate applies pending schema migrations.
func (s *SQLIndex) Migrate() error {
	return migrations.MigrateUp(s.db.DB, s.driver)
}

// CheckMigrations returns an error unless the schema is at the latest version.
func (s *SQLIndex) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db.DB, s.driver)
}

// UpsertRecord inserts or replaces the record for key in one statement.
func (s *SQLIndex) UpsertRecord(ctx context.Context, key, locator string, modifiedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := s.db.Rebind(`
		INSERT INTO ` + TableName + ` (file_name, s3_url, uploaded_at)
		VALUES (?, ?, ?)
		ON CONFLICT (file_name)
		DO UPDATE SET s3_url = excluded.s3_url, uploaded_at = excluded.uploaded_at`)
	if _, err := s.db.ExecContext(ctx, query, key, locator, modifiedAt.UTC()); err != nil {
		return fmt.Errorf("upserting record %s: %w", key, err)
	}
	return nil
}

// RemoveRecord deletes the record for key. Missing records are ignored.
func (s *SQLIndex) RemoveRecord(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	query := s.db.Rebind(`DELETE FROM ` + TableName + ` WHERE file_name = ?`)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("removing record %s: %w", key, err)
	}
	return nil
}

// FindRecord returns the record for key, or nil if none exists.
func (s *SQLIndex) FindRecord(ctx context.Context, key string) (*mirror.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var row linkRow
	query := s.db.Rebind(`SELECT file_name, s3_url, uploaded_at FROM ` + TableName + ` WHERE file_name = ?`)
	if err := s.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding record %s: %w", key, err)
	}
	return row.record(), nil
}

// ListRecords returns up to limit records ordered by key, starting after the
// given key. An empty after starts from the beginning.
func (s *SQLIndex) ListRecords(ctx context.Context, after string, limit int) ([]*mirror.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var rows []linkRow
	query := s.db.Rebind(`SELECT file_name, s3_url, uploaded_at FROM ` + TableName + `
		WHERE file_name > ? ORDER BY file_name LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, after, limit); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	records := make([]*mirror.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLIndex) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLIndex implements mirror.MetadataIndex
var _ mirror.MetadataIndex = (*SQLIndex)(nil)
