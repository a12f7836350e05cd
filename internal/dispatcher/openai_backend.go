package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/relay-bot/internal/models"
)

// OpenAIBackend answers commands through an OpenAI compatible chat
// completions API. The command endpoint, when set, is used as the base URL.
// Params may carry "model", "temperature" and "tokens".
type OpenAIBackend struct {
	apiKey    string
	model     string
	maxTokens int
}

func NewOpenAIBackend(apiKey string, model string, maxTokens int) *OpenAIBackend {
	return &OpenAIBackend{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (b *OpenAIBackend) Ask(ctx context.Context, spec models.CommandSpec, question, contextText string) (string, error) {
	cfg := openai.DefaultConfig(b.apiKey)
	if spec.Endpoint != "" {
		cfg.BaseURL = strings.TrimRight(spec.Endpoint, "/")
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
	}
	if model, ok := spec.Params["model"].(string); ok && model != "" {
		req.Model = model
	}
	if temp, ok := toFloat(spec.Params["temperature"]); ok {
		req.Temperature = float32(temp)
	}
	if tokens, ok := toFloat(spec.Params["tokens"]); ok {
		req.MaxTokens = int(tokens)
	}

	if contextText != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: contextText,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
