package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/relay-bot/internal/models"
)

func TestOpenAIBackendAsk(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  hello there  "}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("sk-test", "gpt-default", 100)
	spec := models.CommandSpec{
		Key:      "g",
		Endpoint: srv.URL + "/v1/",
		Backend:  models.BackendOpenAI,
		Params:   map[string]any{"model": "gpt-test", "tokens": 250},
	}

	answer, err := b.Ask(context.Background(), spec, "hi", "you are helpful")

	require.NoError(t, err)
	assert.Equal(t, "hello there", answer)
	assert.Equal(t, "gpt-test", got.Model)
	assert.Equal(t, 250, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "you are helpful", got.Messages[0].Content)
	assert.Equal(t, "hi", got.Messages[1].Content)
}

func TestOpenAIBackendNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("sk-test", "gpt-default", 100)
	_, err := b.Ask(context.Background(), models.CommandSpec{Endpoint: srv.URL + "/v1"}, "hi", "")

	assert.Error(t, err)
}
