// Package skills groups model-callable tools into named skills and aggregates
// them into a single registry consulted by the orchestrator.
package skills

import (
	"fmt"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// Skill is a named bundle of tools. Adding a capability to the bot means
// adding one skill here; the orchestrator and executor need no changes.
type Skill interface {
	Name() string
	Description() string
	Tools() []schema.Tool
}

// Registry holds the flat, globally unique set of tools from all skills.
type Registry struct {
	tools map[string]schema.Tool
	order []string // registration order, for a stable catalog
}

// NewRegistry aggregates skills into one registry. Tool names must be unique
// across the whole set; a duplicate is a startup error, not a silent overwrite.
func NewRegistry(sks ...Skill) (*Registry, error) {
	r := &Registry{tools: make(map[string]schema.Tool)}
	for _, sk := range sks {
		for _, t := range sk.Tools() {
			if prev, ok := r.tools[t.Name()]; ok {
				return nil, fmt.Errorf("skill %q registers tool %q already provided by %T", sk.Name(), t.Name(), prev)
			}
			r.tools[t.Name()] = t
			r.order = append(r.order, t.Name())
		}
	}
	return r, nil
}

// Get returns the tool with the given name, or nil if not registered.
func (r *Registry) Get(name string) schema.Tool {
	return r.tools[name]
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Descriptors returns the full tool catalog in registration order.
func (r *Registry) Descriptors() []schema.ToolDescriptor {
	out := make([]schema.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, schema.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
