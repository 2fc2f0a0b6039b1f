package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

const (
	articleUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36"
	articleMaxRedirect = 5
	// articleTimeout bounds the whole fetch; page fetches must never hang the turn.
	articleTimeout = 15 * time.Second
)

// ArticleSkill fetches a web page and extracts its readable content.
type ArticleSkill struct {
	maxChars   int
	httpClient *http.Client
}

// NewArticleSkill creates an ArticleSkill. maxChars defaults to 20000.
func NewArticleSkill(maxChars int) *ArticleSkill {
	if maxChars <= 0 {
		maxChars = 20000
	}
	return &ArticleSkill{
		maxChars: maxChars,
		httpClient: &http.Client{
			Timeout: articleTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= articleMaxRedirect {
					return fmt.Errorf("stopped after %d redirects", articleMaxRedirect)
				}
				return nil
			},
		},
	}
}

func (s *ArticleSkill) Name() string        { return "article" }
func (s *ArticleSkill) Description() string { return "Article fetching and extraction" }

func (s *ArticleSkill) Tools() []schema.Tool {
	return []schema.Tool{&fetchArticleTool{skill: s}}
}

// validateArticleURL checks that raw is http(s) with a valid domain.
func validateArticleURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing domain in URL")
	}
	return nil
}

type fetchArticleParams struct {
	URL      string `json:"url" jsonschema:"description=URL of the article to fetch" validate:"required,url"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"description=Truncate extracted text to this many characters" validate:"omitempty,min=100"`
}

type fetchArticleTool struct {
	skill *ArticleSkill
}

func (t *fetchArticleTool) Name() string { return "fetch_article" }
func (t *fetchArticleTool) Description() string {
	return "Fetch a URL and extract the readable article text (title + body)."
}
func (t *fetchArticleTool) Parameters() json.RawMessage { return paramsSchema(&fetchArticleParams{}) }

func (t *fetchArticleTool) Execute(ctx context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p fetchArticleParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if err := validateArticleURL(p.URL); err != nil {
		return "", fmt.Errorf("URL validation failed: %w", err)
	}
	maxChars := p.MaxChars
	if maxChars == 0 {
		maxChars = t.skill.maxChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", articleUserAgent)

	resp, err := t.skill.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", p.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p.URL, err)
	}

	parsedURL, _ := url.Parse(p.URL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract article from %s: %w", p.URL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	truncated := len(text) > maxChars
	if truncated {
		text = text[:maxChars]
	}

	var sb strings.Builder
	if article.Title != "" {
		sb.WriteString(article.Title + "\n\n")
	}
	sb.WriteString(text)
	if truncated {
		sb.WriteString("\n\n[truncated]")
	}
	return sb.String(), nil
}
