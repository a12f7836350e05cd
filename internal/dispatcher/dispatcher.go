package dispatcher

import (
	"context"
	"fmt"

	"github.com/xaenox/relay-bot/internal/models"
	"go.uber.org/zap"
)

// Apology is the answer sent when the model endpoint cannot be reached or
// returns something unusable.
const Apology = "Sorry, I encountered an error while processing your request."

// Backend asks a model one question on behalf of a command.
type Backend interface {
	Ask(ctx context.Context, spec models.CommandSpec, question, contextText string) (string, error)
}

// Dispatcher routes parsed commands to the backend their spec names.
type Dispatcher struct {
	specs    map[models.CommandKey]models.CommandSpec
	backends map[string]Backend
	logger   *zap.Logger
}

// New returns a dispatcher over specs. Specs without a backend use
// models.BackendHTTP.
func New(specs []models.CommandSpec, backends map[string]Backend, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		specs:    make(map[models.CommandKey]models.CommandSpec, len(specs)),
		backends: backends,
		logger:   logger,
	}
	for _, spec := range specs {
		d.specs[spec.Key] = spec
	}
	return d
}

// Dispatch sends content and context to the command's endpoint and returns
// the answer. Failures are logged and replaced by Apology; Dispatch never
// returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, key models.CommandKey, content, contextText string) string {
	answer, err := d.ask(ctx, key, content, contextText)
	if err != nil {
		d.logger.Error("Failed to get model response",
			zap.Error(err),
			zap.String("command", string(key)))
		return Apology
	}
	return answer
}

func (d *Dispatcher) ask(ctx context.Context, key models.CommandKey, content, contextText string) (string, error) {
	spec, ok := d.specs[key]
	if !ok {
		return "", fmt.Errorf("unknown command %q", key)
	}

	name := spec.Backend
	if name == "" {
		name = models.BackendHTTP
	}
	backend, ok := d.backends[name]
	if !ok {
		return "", fmt.Errorf("command %q: backend %q not configured", key, name)
	}

	answer, err := backend.Ask(ctx, spec, content, contextText)
	if err != nil {
		return "", fmt.Errorf("%s backend %s: %w", name, spec.Endpoint, err)
	}
	return answer, nil
}
