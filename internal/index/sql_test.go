package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestIndex creates a migrated in-memory SQLite index.
func newTestIndex(t *testing.T) *SQLIndex {
	t.Helper()

	idx, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, idx.Migrate())

	t.Cleanup(func() {
		idx.Close()
	})
	return idx
}

func TestSQLIndex_UpsertRecord(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("inserts new record", func(t *testing.T) {
		idx := newTestIndex(t)

		require.NoError(t, idx.UpsertRecord(ctx, "a/b.txt", "https://bkt.s3.us-east-1.amazonaws.com/a/b.txt", t0))

		rec, err := idx.FindRecord(ctx, "a/b.txt")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "a/b.txt", rec.Key)
		assert.Equal(t, "https://bkt.s3.us-east-1.amazonaws.com/a/b.txt", rec.Locator)
		assert.True(t, rec.LastModified.Equal(t0), "LastModified = %v, want %v", rec.LastModified, t0)
	})

	t.Run("replaces existing record", func(t *testing.T) {
		idx := newTestIndex(t)
		t1 := t0.Add(time.Hour)

		require.NoError(t, idx.UpsertRecord(ctx, "k", "old-url", t0))
		require.NoError(t, idx.UpsertRecord(ctx, "k", "new-url", t1))

		rec, err := idx.FindRecord(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "new-url", rec.Locator)
		assert.True(t, rec.LastModified.Equal(t1))

		records, err := idx.ListRecords(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, records, 1, "upsert must keep a single row per key")
	})

	t.Run("identical upsert is idempotent", func(t *testing.T) {
		idx := newTestIndex(t)

		require.NoError(t, idx.UpsertRecord(ctx, "k", "url", t0))
		first, err := idx.FindRecord(ctx, "k")
		require.NoError(t, err)

		require.NoError(t, idx.UpsertRecord(ctx, "k", "url", t0))
		second, err := idx.FindRecord(ctx, "k")
		require.NoError(t, err)

		assert.Equal(t, first.Key, second.Key)
		assert.Equal(t, first.Locator, second.Locator)
		assert.True(t, first.LastModified.Equal(second.LastModified))
	})
}

func TestSQLIndex_RemoveRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("removes existing record", func(t *testing.T) {
		idx := newTestIndex(t)
		require.NoError(t, idx.UpsertRecord(ctx, "k", "url", time.Now()))

		require.NoError(t, idx.RemoveRecord(ctx, "k"))

		rec, err := idx.FindRecord(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("missing record is not an error", func(t *testing.T) {
		idx := newTestIndex(t)
		assert.NoError(t, idx.RemoveRecord(ctx, "nope"))
	})
}

func TestSQLIndex_FindRecord_NotFound(t *testing.T) {
	idx := newTestIndex(t)

	rec, err := idx.FindRecord(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLIndex_ListRecords(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	for _, k := range []string{"c.txt", "a.txt", "b/d.txt"} {
		require.NoError(t, idx.UpsertRecord(ctx, k, "url-"+k, time.Now()))
	}

	first, err := idx.ListRecords(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a.txt", first[0].Key)
	assert.Equal(t, "b/d.txt", first[1].Key)

	rest, err := idx.ListRecords(ctx, first[1].Key, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c.txt", rest[0].Key)
}

func TestSQLIndex_UnmigratedDatabase(t *testing.T) {
	idx, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer idx.Close()

	assert.Error(t, idx.CheckMigrations())
	assert.Error(t, idx.UpsertRecord(context.Background(), "k", "url", time.Now()), "table does not exist yet")

	require.NoError(t, idx.Migrate())
	assert.NoError(t, idx.CheckMigrations())
}
