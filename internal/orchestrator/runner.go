// Package orchestrator contains the tool-calling core: the runner that drives
// the model and tool protocol for one inbound message, the executor that
// dispatches individual tool calls, and the loop that connects both to the
// message bus and the conversation store.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Codesait/clawbot-telegram/internal/schema"
	"github.com/Codesait/clawbot-telegram/internal/shared/textutils"
)

const (
	// apologyReply is returned when the model backend fails. The loop
	// terminates immediately, no retry of the same round.
	apologyReply = "Sorry, I couldn't reach my language model just now. Please try again in a moment."
	// fallbackReply is returned when the turn ceiling is exhausted without a
	// terminal text answer.
	fallbackReply = "I wasn't able to finish working on that within my step limit. Try narrowing the request or asking again."
)

// Runner drives the bounded model and tool iteration for one inbound message.
// All orchestration state lives in Run's stack frame.
type Runner struct {
	gateway   schema.Gateway
	executor  *Executor
	catalog   []schema.ToolDescriptor
	persona   string
	maxTurns  int
	workspace string
}

// NewRunner creates a Runner. catalog is the full tool catalog built from the
// registry at startup; maxTurns is the hard ceiling on model consultations
// per inbound message.
func NewRunner(gateway schema.Gateway, executor *Executor, catalog []schema.ToolDescriptor, persona string, maxTurns int, workspace string) *Runner {
	if persona == "" {
		persona = defaultPersona
	}
	return &Runner{
		gateway:   gateway,
		executor:  executor,
		catalog:   catalog,
		persona:   persona,
		maxTurns:  maxTurns,
		workspace: workspace,
	}
}

// Run executes the orchestration loop for one message and returns the final
// user-visible reply. It always returns text: gateway failures become the
// apology reply, ceiling exhaustion becomes the fallback reply.
func (r *Runner) Run(ctx context.Context, originalText string, initial *schema.TurnContext, history []schema.Message, chatID string) string {
	callCtx := schema.CallContext{
		ChatID:    chatID,
		History:   history,
		Workspace: r.workspace,
	}

	turn := 0
	currentText := originalText
	currentContext := initial

	for turn < r.maxTurns {
		turn++

		// The catalog is withheld on the final permitted turn, forcing a
		// terminal text answer instead of another tool request.
		var catalog []schema.ToolDescriptor
		if turn < r.maxTurns {
			catalog = r.catalog
		}

		resp, err := r.gateway.Complete(ctx, schema.CompletionRequest{
			System:  r.persona,
			History: history,
			User:    composeUser(currentText, currentContext),
			Tools:   catalog,
		})
		if err != nil {
			slog.Error("model gateway failure", "chat", chatID, "turn", turn, "err", err)
			return apologyReply
		}

		if len(resp.ToolCalls) == 0 {
			text := ""
			if resp.Text != nil {
				text = strings.TrimSpace(*resp.Text)
			}
			return text
		}

		// Execute requested tools in model order, collecting one attributed
		// outcome line per call. A failing tool never aborts its siblings.
		var results strings.Builder
		for _, call := range resp.ToolCalls {
			slog.Info("tool call", "chat", chatID, "turn", turn, "tool", call.Name)
			outcome := r.executor.Execute(ctx, call, callCtx)
			fmt.Fprintf(&results, "[%s]\n%s\n", call.Name, outcome)
			slog.Debug("tool outcome", "tool", call.Name, "outcome", textutils.Truncate(outcome, 200))
		}

		currentContext = &schema.TurnContext{
			Kind: schema.ContextToolResult,
			Body: strings.TrimRight(results.String(), "\n"),
		}
		currentText = regroundPrompt(originalText)
	}

	slog.Warn("turn ceiling reached without a terminal reply", "chat", chatID, "maxTurns", r.maxTurns)
	return fallbackReply
}
