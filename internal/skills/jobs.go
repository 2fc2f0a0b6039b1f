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

// JobsSkill searches remote job listings via a Remotive-compatible HTTP API.
type JobsSkill struct {
	apiBase    string
	httpClient *http.Client
}

func NewJobsSkill(apiBase string) *JobsSkill {
	if apiBase == "" {
		apiBase = "https://remotive.com/api"
	}
	return &JobsSkill{
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *JobsSkill) Name() string        { return "jobs" }
func (s *JobsSkill) Description() string { return "Remote job search" }

func (s *JobsSkill) Tools() []schema.Tool {
	return []schema.Tool{&searchJobsTool{skill: s}}
}

type searchJobsParams struct {
	Query string `json:"query" jsonschema:"description=Keywords to search job titles and descriptions for" validate:"required"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum listings to return (1-20)" validate:"omitempty,min=1,max=20"`
}

type searchJobsTool struct {
	skill *JobsSkill
}

func (t *searchJobsTool) Name() string { return "search_jobs" }
func (t *searchJobsTool) Description() string {
	return "Search remote job listings. Returns title, company, and URL per match."
}
func (t *searchJobsTool) Parameters() json.RawMessage { return paramsSchema(&searchJobsParams{}) }

func (t *searchJobsTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p searchJobsParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	limit := p.Limit
	if limit == 0 {
		limit = 5
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.skill.apiBase+"/remote-jobs", nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("search", p.Query)
	q.Set("limit", fmt.Sprintf("%d", limit))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := t.skill.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("job search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("job search backend returned HTTP %d", resp.StatusCode)
	}

	var data struct {
		Jobs []struct {
			Title       string `json:"title"`
			CompanyName string `json:"company_name"`
			URL         string `json:"url"`
			Location    string `json:"candidate_required_location"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("parse job search response: %w", err)
	}
	if len(data.Jobs) == 0 {
		return fmt.Sprintf("No job listings found for: %s", p.Query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Job listings for: %s\n", p.Query)
	for i, j := range data.Jobs {
		if i >= limit {
			break
		}
		fmt.Fprintf(&sb, "- %s at %s", j.Title, j.CompanyName)
		if j.Location != "" {
			fmt.Fprintf(&sb, " (%s)", j.Location)
		}
		fmt.Fprintf(&sb, "\n  %s\n", j.URL)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
