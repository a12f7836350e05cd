package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/relay-bot/internal/models"
)

func exerciseSQLSink(t *testing.T, sink *SQLSink) {
	t.Helper()
	ctx := context.Background()
	key := models.BucketKey{Label: "gophers", Date: "2024-05-01"}
	other := models.BucketKey{Label: "gophers", Date: "2024-05-02"}

	require.NoError(t, sink.Append(ctx, key, []models.MessageRecord{record(1, "r1")}))
	require.NoError(t, sink.Append(ctx, key, []models.MessageRecord{record(2, "r2"), record(3, "r3")}))
	require.NoError(t, sink.Append(ctx, other, []models.MessageRecord{record(4, "elsewhere")}))

	got, err := sink.Records(ctx, key)
	require.NoError(t, err)
	want := []models.MessageRecord{record(1, "r1"), record(2, "r2"), record(3, "r3")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	empty, err := sink.Records(ctx, models.BucketKey{Label: "nobody", Date: "2024-05-01"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteSink(t *testing.T) {
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer sink.Close()

	exerciseSQLSink(t, sink)
}

func TestSQLiteSinkReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	key := models.BucketKey{Label: "a", Date: "2024-05-01"}

	first, err := NewSQLiteSink(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(context.Background(), key, []models.MessageRecord{record(1, "kept")}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteSink(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Records(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []models.MessageRecord{record(1, "kept")}, got)
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	sink, err := NewPostgresSink(dsn)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.db.Exec(`DELETE FROM message_log WHERE conversation IN ('gophers', 'nobody')`)
	require.NoError(t, err)

	exerciseSQLSink(t, sink)
}

func TestBindPlaceholders(t *testing.T) {
	pg := &SQLSink{placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	assert.Equal(t, "a = $1 AND b = $2", pg.bind("a = ? AND b = ?"))

	lite := &SQLSink{placeholder: func(int) string { return "?" }}
	assert.Equal(t, "a = ? AND b = ?", lite.bind("a = ? AND b = ?"))
}
