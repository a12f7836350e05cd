package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xaenox/relay-bot/internal/models"
	"go.uber.org/zap/zaptest"
)

type fakeFetcher struct {
	messages map[int]*models.Message
	err      error
	calls    int
}

func (f *fakeFetcher) FetchMessage(ctx context.Context, conv models.Conversation, id int) (*models.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

func TestReplyResolver(t *testing.T) {
	conv := models.DirectChat(100)
	botAnswer := &models.Message{
		ID:           10,
		Conversation: conv,
		Text:         "!q Go is a programming language.",
		Sender:       &models.Sender{ID: 1, Username: "mybot"},
	}
	otherCommand := &models.Message{
		ID:           11,
		Conversation: conv,
		Text:         "!q something",
		Sender:       &models.Sender{ID: 2, Username: "stranger"},
	}
	botChatter := &models.Message{
		ID:           12,
		Conversation: conv,
		Text:         "no command here",
		Sender:       &models.Sender{ID: 1, Username: "mybot"},
	}
	fetcher := &fakeFetcher{messages: map[int]*models.Message{10: botAnswer, 11: otherCommand, 12: botChatter}}
	r := NewReplyResolver(NewGrammar(testSpecs()), fetcher, "mybot", zaptest.NewLogger(t))

	t.Run("continues own command thread", func(t *testing.T) {
		got, ok := r.Resolve(context.Background(), &models.Message{ID: 20, Conversation: conv, Text: "who made it?", ReplyToID: 10})

		assert.True(t, ok)
		assert.Equal(t, models.ParsedCommand{
			Command: "q",
			Content: "who made it?",
			Context: "Go is a programming language.",
		}, got)
	})

	t.Run("ignores other senders", func(t *testing.T) {
		_, ok := r.Resolve(context.Background(), &models.Message{ID: 21, Conversation: conv, Text: "hm", ReplyToID: 11})
		assert.False(t, ok)
	})

	t.Run("ignores own non-command messages", func(t *testing.T) {
		_, ok := r.Resolve(context.Background(), &models.Message{ID: 22, Conversation: conv, Text: "hm", ReplyToID: 12})
		assert.False(t, ok)
	})

	t.Run("not a reply", func(t *testing.T) {
		before := fetcher.calls
		_, ok := r.Resolve(context.Background(), &models.Message{ID: 23, Conversation: conv, Text: "hm"})
		assert.False(t, ok)
		assert.Equal(t, before, fetcher.calls)
	})
}

func TestReplyResolverFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("network down")}
	r := NewReplyResolver(NewGrammar(testSpecs()), fetcher, "mybot", zaptest.NewLogger(t))

	_, ok := r.Resolve(context.Background(), &models.Message{ID: 5, Conversation: models.GroupChat(-5), Text: "x", ReplyToID: 4})

	assert.False(t, ok)
	assert.Equal(t, 1, fetcher.calls)
}
