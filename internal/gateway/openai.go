// Package gateway implements the model backend contract against any
// OpenAI-compatible chat-completions endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// OpenAIGateway makes direct HTTP calls to an OpenAI-compatible endpoint.
// Backend and transport failures are returned as errors; the orchestrator
// owns the user-visible conversion.
type OpenAIGateway struct {
	apiKey      string
	apiBase     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOpenAIGateway(cfg config.ModelConfig) *OpenAIGateway {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIGateway{
		apiKey:      cfg.APIKey,
		apiBase:     apiBase,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Complete implements schema.Gateway.
func (g *OpenAIGateway) Complete(ctx context.Context, req schema.CompletionRequest) (schema.CompletionResponse, error) {
	body := map[string]any{
		"model":       g.model,
		"messages":    wireMessages(req),
		"max_tokens":  g.maxTokens,
		"temperature": g.temperature,
	}
	if len(req.Tools) > 0 {
		body["tools"] = wireTools(req.Tools)
		body["tool_choice"] = "auto"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.CompletionResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}

	return parseResponse(raw)
}

// wireMessages flattens (system, history, user) into the OpenAI messages
// array. History tool-role entries are carried as-is; the runner only
// persists user/assistant pairs, so in practice these are the two roles seen.
func wireMessages(req schema.CompletionRequest) []map[string]any {
	out := make([]map[string]any, 0, len(req.History)+2)
	if req.System != "" {
		out = append(out, map[string]any{"role": schema.RoleSystem, "content": req.System})
	}
	for _, m := range req.History {
		out = append(out, map[string]any{"role": m.Role, "content": m.Content})
	}
	out = append(out, map[string]any{"role": schema.RoleUser, "content": req.User})
	return out
}

// wireTools converts descriptors to the OpenAI function-calling format.
func wireTools(descs []schema.ToolDescriptor) []map[string]any {
	out := make([]map[string]any, 0, len(descs))
	for _, d := range descs {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  json.RawMessage(d.Parameters),
			},
		})
	}
	return out
}

// respBody is the subset of the chat completion response we care about.
type respBody struct {
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(raw []byte) (schema.CompletionResponse, error) {
	var body respBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.CompletionResponse{}, fmt.Errorf("parse response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.CompletionResponse{}, fmt.Errorf("empty choices in response")
	}

	msg := body.Choices[0].Message

	var text *string
	if s, ok := msg.Content.(string); ok && s != "" {
		text = &s
	}

	var toolCalls []schema.ToolCallRequest
	for _, tc := range msg.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
			args = map[string]any{}
		}
		toolCalls = append(toolCalls, schema.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return schema.CompletionResponse{Text: text, ToolCalls: toolCalls}, nil
}

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage. Handles models that emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
