package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/relay-bot/internal/models"
)

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	key := models.BucketKey{Label: "a", Date: "2024-05-01"}

	require.NoError(t, sink.Append(context.Background(), key, []models.MessageRecord{record(1, "one")}))
	require.NoError(t, sink.Append(context.Background(), key, []models.MessageRecord{record(2, "two")}))

	got, err := sink.Records(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []models.MessageRecord{record(1, "one"), record(2, "two")}, got)
	assert.Equal(t, []models.BucketKey{key}, sink.Keys())

	got[0].Text = "mutated"
	again, _ := sink.Records(context.Background(), key)
	assert.Equal(t, "one", again[0].Text)
	assert.NoError(t, sink.Close())
}

func TestOpen(t *testing.T) {
	fs := afero.NewMemMapFs()

	file, err := Open(Config{Driver: DriverFile, Dir: "logs"}, fs)
	require.NoError(t, err)
	assert.IsType(t, &FileSink{}, file)

	mem, err := Open(Config{Driver: DriverMemory}, fs)
	require.NoError(t, err)
	assert.IsType(t, &MemorySink{}, mem)

	_, err = Open(Config{Driver: DriverPostgres}, fs)
	assert.Error(t, err)

	_, err = Open(Config{Driver: "cassandra"}, fs)
	assert.Error(t, err)
}
