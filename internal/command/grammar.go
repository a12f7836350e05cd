package command

import (
	"strings"

	"github.com/xaenox/relay-bot/internal/models"
)

// Grammar recognises command prefixes at the start of message text.
type Grammar struct {
	specs []models.CommandSpec
	byKey map[models.CommandKey]models.CommandSpec
}

// NewGrammar builds a grammar over specs. Matching follows the slice order.
func NewGrammar(specs []models.CommandSpec) *Grammar {
	g := &Grammar{
		specs: make([]models.CommandSpec, len(specs)),
		byKey: make(map[models.CommandKey]models.CommandSpec, len(specs)),
	}
	copy(g.specs, specs)
	for _, spec := range specs {
		g.byKey[spec.Key] = spec
	}
	return g
}

// Parse returns the first command whose prefix starts text, with the prefix
// removed and the remainder trimmed.
func (g *Grammar) Parse(text string) (models.ParsedCommand, bool) {
	for _, spec := range g.specs {
		if spec.Prefix == "" {
			continue
		}
		if strings.HasPrefix(text, spec.Prefix) {
			return models.ParsedCommand{
				Command: spec.Key,
				Content: strings.TrimSpace(text[len(spec.Prefix):]),
			}, true
		}
	}
	return models.ParsedCommand{}, false
}

// Spec looks up a command by key.
func (g *Grammar) Spec(key models.CommandKey) (models.CommandSpec, bool) {
	spec, ok := g.byKey[key]
	return spec, ok
}

// Specs returns the vocabulary in matching order.
func (g *Grammar) Specs() []models.CommandSpec {
	out := make([]models.CommandSpec, len(g.specs))
	copy(out, g.specs)
	return out
}

// Overlap is a pair of commands where one prefix is a leading substring of
// the other, so first-match order decides which one wins.
type Overlap struct {
	Shorter models.CommandKey
	Longer  models.CommandKey
}

// Overlaps lists every ambiguous prefix pair. It is informational only;
// Parse keeps first-match semantics.
func (g *Grammar) Overlaps() []Overlap {
	var out []Overlap
	for i := 0; i < len(g.specs); i++ {
		for j := i + 1; j < len(g.specs); j++ {
			a, b := g.specs[i], g.specs[j]
			switch {
			case strings.HasPrefix(b.Prefix, a.Prefix):
				out = append(out, Overlap{Shorter: a.Key, Longer: b.Key})
			case strings.HasPrefix(a.Prefix, b.Prefix):
				out = append(out, Overlap{Shorter: b.Key, Longer: a.Key})
			}
		}
	}
	return out
}
