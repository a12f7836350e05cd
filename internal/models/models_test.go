package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRecord(t *testing.T) {
	fallback := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("uses message date and sender", func(t *testing.T) {
		msg := &Message{
			ID:   7,
			Date: time.Date(2024, 4, 30, 23, 59, 58, 0, time.UTC),
			Text: "hello",
			Sender: &Sender{
				ID:        9007199254740993,
				Username:  "alice",
				FirstName: "Alice",
				LastName:  "Liddell",
			},
		}

		rec := NewMessageRecord(msg, fallback)

		assert.Equal(t, 7, rec.MessageID)
		assert.Equal(t, "2024-04-30T23:59:58Z", rec.Date)
		assert.Equal(t, "hello", rec.Text)
		assert.Equal(t, "9007199254740993", rec.SenderID)
		assert.Equal(t, "alice", rec.SenderUsername)
		assert.Equal(t, "Alice", rec.SenderFirstName)
		assert.Equal(t, "Liddell", rec.SenderLastName)
	})

	t.Run("falls back when date is missing", func(t *testing.T) {
		rec := NewMessageRecord(&Message{ID: 1}, fallback)

		assert.Equal(t, "2024-05-01T12:00:00Z", rec.Date)
		assert.Empty(t, rec.SenderID)
	})
}

func TestMessageRecordJSON(t *testing.T) {
	rec := MessageRecord{MessageID: 3, Date: "2024-05-01T12:00:00Z", Text: "hi", SenderID: "42"}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	assert.JSONEq(t, `{"messageId":3,"date":"2024-05-01T12:00:00Z","text":"hi","senderId":"42"}`, string(data))
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2024, 5, 1, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	key := NewBucketKey("general", ts)

	assert.Equal(t, "2024-05-02", key.Date)
	assert.Equal(t, "general-2024-05-02.json", key.Filename())
}

func TestFilterAllows(t *testing.T) {
	filter := Filter{IncomingOnly: true, ExcludeForwards: true}

	assert.True(t, filter.Allows(&Message{}))
	assert.False(t, filter.Allows(&Message{Outgoing: true}))
	assert.False(t, filter.Allows(&Message{Forwarded: true}))
	assert.True(t, Filter{}.Allows(&Message{Outgoing: true, Forwarded: true}))
}

func TestConversationValidate(t *testing.T) {
	assert.NoError(t, DirectChat(1).Validate())
	assert.NoError(t, GroupChat(-2).Validate())
	assert.NoError(t, Channel(-1003).Validate())
	assert.Error(t, Conversation{Kind: "bogus", ID: 5}.Validate())
	assert.Error(t, DirectChat(0).Validate())
	assert.Equal(t, "-1003", Channel(-1003).String())
}
