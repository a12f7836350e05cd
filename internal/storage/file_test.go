package storage

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/relay-bot/internal/models"
)

func record(id int, text string) models.MessageRecord {
	return models.MessageRecord{
		MessageID: id,
		Date:      "2024-05-01T10:00:00Z",
		Text:      text,
		SenderID:  "12345678901234567890",
	}
}

func TestFileSinkAppendsToExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink, err := NewFileSink(fs, "logs")
	require.NoError(t, err)
	key := models.BucketKey{Label: "gophers", Date: "2024-05-01"}

	require.NoError(t, afero.WriteFile(fs, "logs/gophers-2024-05-01.json",
		[]byte(`[{"messageId":0,"date":"2024-05-01T09:00:00Z","text":"r0","senderId":"1"}]`), 0o644))

	require.NoError(t, sink.Append(context.Background(), key, []models.MessageRecord{record(1, "r1"), record(2, "r2")}))

	got, err := sink.Records(context.Background(), key)
	require.NoError(t, err)
	want := []models.MessageRecord{
		{MessageID: 0, Date: "2024-05-01T09:00:00Z", Text: "r0", SenderID: "1"},
		record(1, "r1"),
		record(2, "r2"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	exists, err := afero.Exists(fs, "logs/gophers-2024-05-01.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileSinkMissingFileIsEmpty(t *testing.T) {
	sink, err := NewFileSink(afero.NewMemMapFs(), "logs")
	require.NoError(t, err)

	got, err := sink.Records(context.Background(), models.BucketKey{Label: "nobody", Date: "2024-01-01"})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileSinkWritesJSONArray(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink, err := NewFileSink(fs, "logs")
	require.NoError(t, err)
	key := models.BucketKey{Label: "alice", Date: "2024-05-01"}

	require.NoError(t, sink.Append(context.Background(), key, []models.MessageRecord{record(1, "hello")}))

	data, err := afero.ReadFile(fs, "logs/alice-2024-05-01.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"messageId":1,"date":"2024-05-01T10:00:00Z","text":"hello","senderId":"12345678901234567890"}]`, string(data))
}

func TestFileSinkCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink, err := NewFileSink(fs, "logs")
	require.NoError(t, err)
	key := models.BucketKey{Label: "broken", Date: "2024-05-01"}
	require.NoError(t, afero.WriteFile(fs, sink.Path(key), []byte(`{not json`), 0o644))

	err = sink.Append(context.Background(), key, []models.MessageRecord{record(1, "x")})

	assert.Error(t, err)
	data, _ := afero.ReadFile(fs, sink.Path(key))
	assert.Equal(t, `{not json`, string(data), "corrupt file must not be overwritten")
}

func TestFileSinkSanitizesLabel(t *testing.T) {
	sink, err := NewFileSink(afero.NewMemMapFs(), "logs")
	require.NoError(t, err)

	assert.Equal(t, "logs/a_b-2024-05-01.json", sink.Path(models.BucketKey{Label: "a/b", Date: "2024-05-01"}))
	assert.Equal(t, "logs/_-2024-05-01.json", sink.Path(models.BucketKey{Label: "..", Date: "2024-05-01"}))
}

func TestFileSinkReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll("logs", 0o755))
	sink := &FileSink{fs: afero.NewReadOnlyFs(base), dir: "logs"}

	err := sink.Append(context.Background(), models.BucketKey{Label: "x", Date: "2024-05-01"}, []models.MessageRecord{record(1, "x")})

	assert.Error(t, err)
}

func TestContextFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "context.txt", []byte("you are a bot"), 0o644))

	got, err := NewContextFile(fs, "context.txt").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "you are a bot", got)

	_, err = NewContextFile(fs, "missing.txt").Load(context.Background())
	assert.Error(t, err)
}
