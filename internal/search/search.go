// Package search implements the knowledge-retrieval pipeline: a Google
// Custom Search query, page scraping, and an LLM summarisation pass.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/lauruschat/lauruschat/internal/providers"
)

// ErrRetrieval marks any downstream retrieval fault (network, quota,
// empty results). Callers convert it to degraded tool output.
var ErrRetrieval = errors.New("search: retrieval failed")

const defaultCSEBase = "https://www.googleapis.com/customsearch/v1"

const summarySystemPrompt = "You are part of a team of customer service assistants for Laurus Education, " +
	"a provider of educational programs to Australian and international students. " +
	"You will receive a query from another team member which has been used to search " +
	"Laurus Education's affiliated web sites for information. " +
	"Your job is to summarise the raw search results to answer the incoming query. " +
	"If the answer to the query is not apparent from the search results you should say so. " +
	"You should also provide a url that the team member should go to for more information. " +
	"Do not use markdown, respond with text only."

// CompletionClient is the summarisation backend.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, model string, messages []providers.ChatMessage) (string, error)
}

// Result is one search hit after scraping.
type Result struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// Pipeline runs query → scrape → summarise.
type Pipeline struct {
	apiKey       string
	cseID        string
	maxResults   int
	maxPageChars int
	model        string

	completions CompletionClient
	httpClient  *http.Client
	cseBase     string
}

// NewPipeline creates a Pipeline. maxResults defaults to 3 and
// maxPageChars to 30000 (the scraped text must fit the summary model's
// context window).
func NewPipeline(apiKey, cseID string, maxResults, maxPageChars int, model string, completions CompletionClient) *Pipeline {
	if maxResults <= 0 {
		maxResults = 3
	}
	if maxPageChars <= 0 {
		maxPageChars = 30000
	}
	return &Pipeline{
		apiKey:       apiKey,
		cseID:        cseID,
		maxResults:   maxResults,
		maxPageChars: maxPageChars,
		model:        model,
		completions:  completions,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		cseBase:      defaultCSEBase,
	}
}

// Search answers query with a synthesised summary of scraped search hits.
// site, when non-empty, restricts results to that domain.
func (p *Pipeline) Search(ctx context.Context, query, site string) (string, error) {
	hits, err := p.conductSearch(ctx, query, site)
	if err != nil {
		return "", err
	}

	scraped := p.scrapeAll(ctx, hits)
	if len(scraped) == 0 {
		return "", fmt.Errorf("no readable pages for %q: %w", query, ErrRetrieval)
	}

	summary, err := p.summarise(ctx, query, scraped)
	if err != nil {
		return "", fmt.Errorf("summarise %q: %v: %w", query, err, ErrRetrieval)
	}

	slog.Debug("search complete", "query", query, "pages", len(scraped))
	return summary, nil
}

// ---------------------------------------------------------------------------
// Custom Search query
// ---------------------------------------------------------------------------

type cseItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

func (p *Pipeline) conductSearch(ctx context.Context, query, site string) ([]cseItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cseBase, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %v: %w", err, ErrRetrieval)
	}
	q := req.URL.Query()
	q.Set("key", p.apiKey)
	q.Set("cx", p.cseID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(p.maxResults))
	if site != "" {
		q.Set("siteSearch", site)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %v: %w", err, ErrRetrieval)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search HTTP %d: %w", resp.StatusCode, ErrRetrieval)
	}

	var body struct {
		Items []cseItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parse search response: %v: %w", err, ErrRetrieval)
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("no results for %q: %w", query, ErrRetrieval)
	}
	if len(body.Items) > p.maxResults {
		body.Items = body.Items[:p.maxResults]
	}
	return body.Items, nil
}

// ---------------------------------------------------------------------------
// Scraping
// ---------------------------------------------------------------------------

// scrapeAll fetches each hit's page text, keeping the total within the
// character budget so it fits the summary model's context window.
func (p *Pipeline) scrapeAll(ctx context.Context, hits []cseItem) []Result {
	budget := p.maxPageChars * 95 / 100
	total := 0

	var out []Result
	for _, hit := range hits {
		text, err := p.scrape(ctx, hit.Link)
		if err != nil {
			slog.Warn("scrape failed", "url", hit.Link, "err", err)
			continue
		}

		truncate := false
		if total+len(text) > budget {
			text = cutOnRuneBoundary(text, budget-total)
			truncate = true
		}

		out = append(out, Result{Title: hit.Title, URL: hit.Link, Text: text})
		total += len(text)

		if truncate {
			break
		}
	}
	return out
}

// cutOnRuneBoundary truncates s to at most n bytes without splitting a
// multi-byte rune; the result must stay valid UTF-8 for the summariser's
// JSON payload.
func cutOnRuneBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (p *Pipeline) scrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	parsed, _ := url.Parse(pageURL)
	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// ---------------------------------------------------------------------------
// Summarisation
// ---------------------------------------------------------------------------

func (p *Pipeline) summarise(ctx context.Context, query string, results []Result) (string, error) {
	raw, err := json.Marshal(results)
	if err != nil {
		return "", err
	}

	return p.completions.ChatCompletion(ctx, p.model, []providers.ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\n\nSearch results:%s", query, raw)},
	})
}
