package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/schema"
)

func newTestGateway(url string) *OpenAIGateway {
	return NewOpenAIGateway(config.ModelConfig{
		APIKey:  "test-key",
		APIBase: url,
		Model:   "gpt-4o",
	})
}

func TestComplete_TextReply(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hello back"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	resp, err := g.Complete(context.Background(), schema.CompletionRequest{
		System:  "persona",
		History: []schema.Message{{Role: schema.RoleUser, Content: "earlier"}},
		User:    "hi",
		Tools: []schema.ToolDescriptor{{
			Name:        "web_search",
			Description: "search",
			Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text == nil || *resp.Text != "hello back" {
		t.Errorf("Text = %v", resp.Text)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %v", resp.ToolCalls)
	}

	msgs := captured["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("wire messages = %d, want system+history+user", len(msgs))
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "persona" {
		t.Errorf("first message = %v", first)
	}
	last := msgs[2].(map[string]any)
	if last["role"] != "user" || last["content"] != "hi" {
		t.Errorf("last message = %v", last)
	}
	if captured["tools"] == nil || captured["tool_choice"] != "auto" {
		t.Error("tool catalog should be on the wire")
	}
}

func TestComplete_NoToolsOmitsCatalog(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	if _, err := g.Complete(context.Background(), schema.CompletionRequest{User: "hi"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := captured["tools"]; ok {
		t.Error("tools must be absent when the catalog is withheld")
	}
}

func TestComplete_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":null,"tool_calls":[
			{"id":"call_1","function":{"name":"get_repos","arguments":"{\"limit\":5}"}},
			{"id":"call_2","function":{"name":"web_search","arguments":"{\"query\":\"go\""}}
		]},"finish_reason":"tool_calls"}]}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	resp, err := g.Complete(context.Background(), schema.CompletionRequest{User: "repos?"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != nil {
		t.Errorf("Text = %q, want nil", *resp.Text)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %d, want 2", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Name != "get_repos" || resp.ToolCalls[0].Arguments["limit"] != float64(5) {
		t.Errorf("first call = %+v", resp.ToolCalls[0])
	}
	// Truncated arguments JSON is repaired rather than dropped.
	if resp.ToolCalls[1].Arguments["query"] != "go" {
		t.Errorf("repaired arguments = %+v", resp.ToolCalls[1].Arguments)
	}
}

func TestComplete_Non200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	if _, err := g.Complete(context.Background(), schema.CompletionRequest{User: "hi"}); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{"valid", `{"q":"x"}`, "q", false},
		{"empty", "", "", false},
		{"truncated", `{"q":"x"`, "q", false},
		{"trailing garbage", `{"q":"x"}}}`, "q", false},
		{"hopeless", `not json at all`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := repairJSON(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantKey != "" {
				if _, ok := out[tt.wantKey]; !ok {
					t.Errorf("repaired map missing %q: %v", tt.wantKey, out)
				}
			}
		})
	}
}
