package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// GitHubSkill exposes repository operations backed by the GitHub REST API.
type GitHubSkill struct {
	client *github.Client
	owner  string
}

// NewGitHubSkill creates a GitHubSkill authenticated with a personal access
// token. owner is the default account queried when the model omits one.
func NewGitHubSkill(token, owner string) *GitHubSkill {
	var hc = oauth2.NewClient(context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &GitHubSkill{client: github.NewClient(hc), owner: owner}
}

func (s *GitHubSkill) Name() string        { return "github" }
func (s *GitHubSkill) Description() string { return "GitHub repository operations" }

func (s *GitHubSkill) Tools() []schema.Tool {
	return []schema.Tool{
		&listReposTool{skill: s},
		&listIssuesTool{skill: s},
		&createIssueTool{skill: s},
	}
}

// ---------------------------------------------------------------------------
// get_repos
// ---------------------------------------------------------------------------

type listReposParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"description=Maximum repositories to return (1-50)" validate:"omitempty,min=1,max=50"`
}

type listReposTool struct {
	skill *GitHubSkill
}

func (t *listReposTool) Name() string { return "get_repos" }
func (t *listReposTool) Description() string {
	return "List the configured user's GitHub repositories with stars and descriptions."
}
func (t *listReposTool) Parameters() json.RawMessage { return paramsSchema(&listReposParams{}) }

func (t *listReposTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p listReposParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	limit := p.Limit
	if limit == 0 {
		limit = 20
	}

	repos, _, err := t.skill.client.Repositories.ListByUser(ctx, t.skill.owner,
		&github.RepositoryListByUserOptions{
			Sort:        "updated",
			ListOptions: github.ListOptions{PerPage: limit},
		})
	if err != nil {
		return "", fmt.Errorf("list repositories: %w", err)
	}
	if len(repos) == 0 {
		return fmt.Sprintf("No repositories found for %s", t.skill.owner), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Repositories for %s:\n", t.skill.owner)
	for _, r := range repos {
		fmt.Fprintf(&sb, "- %s (★%d)", r.GetFullName(), r.GetStargazersCount())
		if d := r.GetDescription(); d != "" {
			sb.WriteString(" — " + d)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ---------------------------------------------------------------------------
// get_issues
// ---------------------------------------------------------------------------

type listIssuesParams struct {
	Repo  string `json:"repo" jsonschema:"description=Repository name (without owner)" validate:"required"`
	State string `json:"state,omitempty" jsonschema:"description=Issue state: open, closed or all,enum=open,enum=closed,enum=all" validate:"omitempty,oneof=open closed all"`
}

type listIssuesTool struct {
	skill *GitHubSkill
}

func (t *listIssuesTool) Name() string { return "get_issues" }
func (t *listIssuesTool) Description() string {
	return "List issues in one of the configured user's repositories."
}
func (t *listIssuesTool) Parameters() json.RawMessage { return paramsSchema(&listIssuesParams{}) }

func (t *listIssuesTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p listIssuesParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	state := p.State
	if state == "" {
		state = "open"
	}

	issues, _, err := t.skill.client.Issues.ListByRepo(ctx, t.skill.owner, p.Repo,
		&github.IssueListByRepoOptions{
			State:       state,
			ListOptions: github.ListOptions{PerPage: 20},
		})
	if err != nil {
		return "", fmt.Errorf("list issues for %s/%s: %w", t.skill.owner, p.Repo, err)
	}
	if len(issues) == 0 {
		return fmt.Sprintf("No %s issues in %s/%s", state, t.skill.owner, p.Repo), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Issues (%s) in %s/%s:\n", state, t.skill.owner, p.Repo)
	for _, is := range issues {
		if is.IsPullRequest() {
			continue
		}
		fmt.Fprintf(&sb, "- #%d %s\n", is.GetNumber(), is.GetTitle())
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ---------------------------------------------------------------------------
// create_issue
// ---------------------------------------------------------------------------

type createIssueParams struct {
	Repo  string `json:"repo" jsonschema:"description=Repository name (without owner)" validate:"required"`
	Title string `json:"title" jsonschema:"description=Issue title" validate:"required"`
	Body  string `json:"body,omitempty" jsonschema:"description=Issue body in Markdown"`
}

type createIssueTool struct {
	skill *GitHubSkill
}

func (t *createIssueTool) Name() string { return "create_issue" }
func (t *createIssueTool) Description() string {
	return "Create an issue in one of the configured user's repositories."
}
func (t *createIssueTool) Parameters() json.RawMessage { return paramsSchema(&createIssueParams{}) }

func (t *createIssueTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p createIssueParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}

	issue, _, err := t.skill.client.Issues.Create(ctx, t.skill.owner, p.Repo, &github.IssueRequest{
		Title: github.Ptr(p.Title),
		Body:  github.Ptr(p.Body),
	})
	if err != nil {
		return "", fmt.Errorf("create issue in %s/%s: %w", t.skill.owner, p.Repo, err)
	}
	return fmt.Sprintf("Created issue #%d: %s", issue.GetNumber(), issue.GetHTMLURL()), nil
}
