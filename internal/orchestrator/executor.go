package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Codesait/clawbot-telegram/internal/schema"
	"github.com/Codesait/clawbot-telegram/internal/skills"
)

// Executor dispatches one requested tool invocation to its handler.
// It always returns an outcome string: failures and panics are captured
// here and never propagate past this boundary.
type Executor struct {
	registry *skills.Registry
}

func NewExecutor(registry *skills.Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute looks up the tool by name and invokes it with the model-supplied
// arguments and the per-request call context.
func (e *Executor) Execute(ctx context.Context, call schema.ToolCallRequest, callCtx schema.CallContext) (outcome string) {
	tool := e.registry.Get(call.Name)
	if tool == nil {
		slog.Warn("tool not found", "tool", call.Name)
		return fmt.Sprintf("Tool %s not found", call.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "tool", call.Name, "panic", r)
			outcome = fmt.Sprintf("Error executing %s: %v", call.Name, r)
		}
	}()

	result, err := tool.Execute(ctx, call.Arguments, callCtx)
	if err != nil {
		slog.Warn("tool failed", "tool", call.Name, "err", err)
		return fmt.Sprintf("Error executing %s: %s", call.Name, err)
	}
	return result
}
