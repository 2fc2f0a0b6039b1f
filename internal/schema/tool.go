package schema

import (
	"context"
	"encoding/json"
)

// Tool is the interface all model-callable tools must satisfy.
// Tools are bundled into skills and aggregated by the registry at startup.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema (as raw JSON bytes) for this tool's
	// parameters. Generated from the tool's typed argument struct.
	Parameters() json.RawMessage
	Execute(ctx context.Context, params map[string]any, call CallContext) (string, error)
}

// ToolDescriptor is the static, read-only description of one tool as offered
// to the model. Built once at process start from the registry.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCallRequest is one tool invocation requested by the model.
// Transient; consumed within a single orchestration round.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// CallContext carries the capabilities a tool handler may need, constructed
// once per request and passed explicitly into every Execute call.
type CallContext struct {
	ChatID    string
	History   []Message
	Workspace string
}
