package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/xaenox/relay-bot/internal/models"
)

// Request is the JSON body posted to a command endpoint. Params are merged
// into the top level object next to question and context.
type Request struct {
	Question string
	Context  string
	Params   map[string]any
}

func (r Request) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Params)+2)
	for k, v := range r.Params {
		body[k] = v
	}
	body["question"] = r.Question
	body["context"] = r.Context
	return json.Marshal(body)
}

// Response is the endpoint reply.
type Response struct {
	Assistant *string `json:"assistant"`
}

// HTTPBackend posts questions to a plain JSON endpoint.
type HTTPBackend struct {
	client *http.Client
}

func NewHTTPBackend(client *http.Client) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{client: client}
}

func (b *HTTPBackend) Ask(ctx context.Context, spec models.CommandSpec, question, contextText string) (string, error) {
	payload, err := json.Marshal(Request{Question: question, Context: contextText, Params: spec.Params})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Assistant == nil {
		return "", fmt.Errorf("response has no assistant field")
	}
	return *out.Assistant, nil
}
