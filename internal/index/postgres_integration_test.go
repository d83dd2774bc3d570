package index

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postgresIntegrationDSN returns the DSN of a disposable PostgreSQL database
// or skips the test.
func postgresIntegrationDSN(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("S3MIRROR_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("S3MIRROR_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestPostgresIntegrationRoundTrip(t *testing.T) {
	dsn := postgresIntegrationDSN(t)
	ctx := context.Background()

	idx, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		idx.db.Exec(`DROP TABLE IF EXISTS ` + TableName)
		idx.db.Exec(`DROP TABLE IF EXISTS schema_migrations`)
		idx.Close()
	})

	require.NoError(t, idx.Migrate())
	require.NoError(t, idx.CheckMigrations())

	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	require.NoError(t, idx.UpsertRecord(ctx, "a/b.txt", "url-1", t0))
	require.NoError(t, idx.UpsertRecord(ctx, "a/b.txt", "url-2", t0.Add(time.Minute)))

	rec, err := idx.FindRecord(ctx, "a/b.txt")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "url-2", rec.Locator)
	assert.True(t, rec.LastModified.Equal(t0.Add(time.Minute)))

	require.NoError(t, idx.RemoveRecord(ctx, "a/b.txt"))
	rec, err = idx.FindRecord(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
