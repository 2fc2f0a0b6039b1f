package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// WebSkill searches the web using the Brave Search API.
type WebSkill struct {
	apiKey     string
	maxResults int
	httpClient *http.Client
}

// NewWebSkill creates a WebSkill. maxResults defaults to 5.
func NewWebSkill(apiKey string, maxResults int) *WebSkill {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSkill{
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebSkill) Name() string        { return "web" }
func (s *WebSkill) Description() string { return "Web search" }

func (s *WebSkill) Tools() []schema.Tool {
	return []schema.Tool{&webSearchTool{skill: s}}
}

type webSearchParams struct {
	Query string `json:"query" jsonschema:"description=Search query" validate:"required"`
	Count int    `json:"count,omitempty" jsonschema:"description=Number of results (1-10)" validate:"omitempty,min=1,max=10"`
}

type webSearchTool struct {
	skill *WebSkill
}

func (t *webSearchTool) Name() string { return "web_search" }
func (t *webSearchTool) Description() string {
	return "Search the web. Returns titles, URLs, and snippets."
}
func (t *webSearchTool) Parameters() json.RawMessage { return paramsSchema(&webSearchParams{}) }

func (t *webSearchTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	if t.skill.apiKey == "" {
		return "", fmt.Errorf("web search API key not configured")
	}
	var p webSearchParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	n := p.Count
	if n == 0 {
		n = t.skill.maxResults
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://api.search.brave.com/res/v1/web/search", nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("q", p.Query)
	q.Set("count", fmt.Sprintf("%d", n))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", t.skill.apiKey)

	resp, err := t.skill.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search backend returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	results := data.Web.Results
	if len(results) == 0 {
		return fmt.Sprintf("No results for: %s", p.Query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Results for: %s\n\n", p.Query)
	for i, item := range results {
		if i >= n {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n   %s", i+1, item.Title, item.URL)
		if item.Description != "" {
			sb.WriteString("\n   " + item.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
