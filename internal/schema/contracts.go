package schema

import "context"

// TurnContext kinds.
const (
	ContextCaption    = "caption"
	ContextURL        = "url"
	ContextDocument   = "document"
	ContextVoice      = "voice"
	ContextImage      = "image"
	ContextToolResult = "tool_result"
)

// TurnContext is optional attached content accompanying one model turn:
// an attachment caption, a URL detected in the message, a previously fetched
// document, or the aggregated tool results of the prior round.
type TurnContext struct {
	Kind string
	Body string
}

// CompletionRequest is one consultation of the model backend.
// Tools is nil when the catalog is withheld for this turn.
type CompletionRequest struct {
	System  string
	History []Message
	User    string
	Tools   []ToolDescriptor
}

// CompletionResponse is the normalised model response: either a plain reply
// or a set of requested tool invocations (possibly with accompanying text).
type CompletionResponse struct {
	Text      *string
	ToolCalls []ToolCallRequest
}

// Gateway is the contract to the completion backend. Transport and backend
// failures come back as errors; the orchestrator owns the user-visible
// conversion.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Store is the per-chat conversation store. Get returns an empty history on
// miss, expiry, or read/parse failure. Put applies the history cap and
// refreshes the sliding expiration.
type Store interface {
	Get(chatID string) []Message
	Put(chatID string, msgs []Message) error
	Reset(chatID string) error
}
