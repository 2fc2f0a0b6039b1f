package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Codesait/clawbot-telegram/internal/schema"
	"github.com/Codesait/clawbot-telegram/internal/skills"
)

// scriptedGateway replays a fixed sequence of responses and records every
// request it receives.
type scriptedGateway struct {
	responses []schema.CompletionResponse
	errs      []error
	requests  []schema.CompletionRequest
}

func (g *scriptedGateway) Complete(_ context.Context, req schema.CompletionRequest) (schema.CompletionResponse, error) {
	i := len(g.requests)
	g.requests = append(g.requests, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return schema.CompletionResponse{}, g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return schema.CompletionResponse{}, errors.New("scripted gateway exhausted")
}

func textResponse(s string) schema.CompletionResponse {
	return schema.CompletionResponse{Text: &s}
}

func toolResponse(names ...string) schema.CompletionResponse {
	var calls []schema.ToolCallRequest
	for i, n := range names {
		calls = append(calls, schema.ToolCallRequest{
			ID:        fmt.Sprintf("call-%d", i),
			Name:      n,
			Arguments: map[string]any{},
		})
	}
	return schema.CompletionResponse{ToolCalls: calls}
}

// testTool returns a canned result or error and counts invocations.
type testTool struct {
	name   string
	result string
	err    error
	panics bool
	calls  int
}

func (t *testTool) Name() string        { return t.name }
func (t *testTool) Description() string { return "test tool " + t.name }
func (t *testTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *testTool) Execute(_ context.Context, _ map[string]any, _ schema.CallContext) (string, error) {
	t.calls++
	if t.panics {
		panic("tool exploded")
	}
	return t.result, t.err
}

type testSkill struct {
	tools []schema.Tool
}

func (s *testSkill) Name() string        { return "test" }
func (s *testSkill) Description() string { return "test skill" }
func (s *testSkill) Tools() []schema.Tool {
	return s.tools
}

func newTestRunner(t *testing.T, gw schema.Gateway, maxTurns int, tools ...schema.Tool) *Runner {
	t.Helper()
	reg, err := skills.NewRegistry(&testSkill{tools: tools})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewRunner(gw, NewExecutor(reg), reg.Descriptors(), "", maxTurns, "")
}

func TestRunner_TurnCeiling(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("echo"), toolResponse("echo"), toolResponse("echo"), toolResponse("echo"),
	}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "ok"})

	reply := r.Run(context.Background(), "loop forever", nil, nil, "chat")
	if reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
	if len(gw.requests) != 3 {
		t.Errorf("model consultations = %d, want exactly 3", len(gw.requests))
	}
}

func TestRunner_ToolsWithheldOnFinalTurn(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("echo"), toolResponse("echo"), toolResponse("echo"),
	}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "ok"})

	r.Run(context.Background(), "go", nil, nil, "chat")
	if len(gw.requests) != 3 {
		t.Fatalf("consultations = %d", len(gw.requests))
	}
	if len(gw.requests[0].Tools) == 0 || len(gw.requests[1].Tools) == 0 {
		t.Error("catalog should be offered while turns remain below the ceiling")
	}
	if gw.requests[2].Tools != nil {
		t.Error("catalog must be withheld on the final permitted turn")
	}
}

func TestRunner_PartialToolFailureIsolation(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("first", "second", "third"),
		textResponse("done"),
	}}
	first := &testTool{name: "first", result: "one"}
	second := &testTool{name: "second", err: errors.New("boom")}
	third := &testTool{name: "third", result: "three"}
	r := newTestRunner(t, gw, 3, first, second, third)

	reply := r.Run(context.Background(), "do three things", nil, nil, "chat")
	if reply != "done" {
		t.Fatalf("reply = %q", reply)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("all three tools must run: %d %d %d", first.calls, second.calls, third.calls)
	}
	next := gw.requests[1].User
	for _, want := range []string{"one", "Error executing second: boom", "three"} {
		if !strings.Contains(next, want) {
			t.Errorf("next round prompt missing %q:\n%s", want, next)
		}
	}
}

func TestRunner_UnknownTool(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("no_such_tool"),
		textResponse("handled"),
	}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "ok"})

	reply := r.Run(context.Background(), "hi", nil, nil, "chat")
	if reply != "handled" {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(gw.requests[1].User, "Tool no_such_tool not found") {
		t.Errorf("prompt missing not-found outcome:\n%s", gw.requests[1].User)
	}
}

func TestRunner_PanickingToolIsContained(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("bomb"),
		textResponse("survived"),
	}}
	r := newTestRunner(t, gw, 3, &testTool{name: "bomb", panics: true})

	reply := r.Run(context.Background(), "hi", nil, nil, "chat")
	if reply != "survived" {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(gw.requests[1].User, "Error executing bomb") {
		t.Errorf("prompt missing panic outcome:\n%s", gw.requests[1].User)
	}
}

func TestRunner_DirectTextOneConsultation(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{textResponse("just chatting")}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "ok"})

	reply := r.Run(context.Background(), "hello there", nil, nil, "chat")
	if reply != "just chatting" {
		t.Errorf("reply = %q", reply)
	}
	if len(gw.requests) != 1 {
		t.Errorf("consultations = %d, want 1", len(gw.requests))
	}
}

func TestRunner_GatewayFailureApologizesImmediately(t *testing.T) {
	gw := &scriptedGateway{errs: []error{errors.New("network down")}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "ok"})

	reply := r.Run(context.Background(), "hi", nil, nil, "chat")
	if reply != apologyReply {
		t.Errorf("reply = %q, want apology", reply)
	}
	if len(gw.requests) != 1 {
		t.Errorf("consultations = %d, want 1 (no retry)", len(gw.requests))
	}
}

func TestRunner_RegroundsWithOriginalRequest(t *testing.T) {
	gw := &scriptedGateway{responses: []schema.CompletionResponse{
		toolResponse("echo"),
		textResponse("done"),
	}}
	r := newTestRunner(t, gw, 3, &testTool{name: "echo", result: "tool says hi"})

	original := "What are my repos?"
	r.Run(context.Background(), original, nil, nil, "chat")

	next := gw.requests[1].User
	if !strings.Contains(next, original) {
		t.Errorf("next round must restate the original request verbatim:\n%s", next)
	}
	if !strings.Contains(next, "tool says hi") {
		t.Errorf("next round must carry the aggregated tool outcomes:\n%s", next)
	}
}

func TestComposeUser(t *testing.T) {
	tests := []struct {
		name string
		tc   *schema.TurnContext
		want string
	}{
		{"nil context", nil, "hello"},
		{"url", &schema.TurnContext{Kind: schema.ContextURL, Body: "https://x.test"}, "https://x.test"},
		{"tool result", &schema.TurnContext{Kind: schema.ContextToolResult, Body: "result"}, "Tool results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := composeUser("hello", tt.tc)
			if !strings.Contains(got, tt.want) {
				t.Errorf("composeUser = %q, want substring %q", got, tt.want)
			}
		})
	}
}
