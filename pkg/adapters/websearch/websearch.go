// Package websearch implements ports.Searcher on the Tavily and Brave search
// APIs.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
)

const (
	ProviderTavily = "tavily"
	ProviderBrave  = "brave"

	TavilyBaseURL = "https://api.tavily.com"
	BraveBaseURL  = "https://api.search.brave.com"

	defaultTimeout = 20 * time.Second
	maxErrorBody   = 512
)

// Config configures a Client.
type Config struct {
	// Provider is "tavily" or "brave".
	Provider string
	APIKey   string
	// BaseURL overrides the provider's endpoint.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client searches the web through one provider.
type Client struct {
	provider string
	apiKey   string
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Searcher = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	var baseURL string
	switch provider {
	case ProviderTavily:
		baseURL = TavilyBaseURL
	case ProviderBrave:
		baseURL = BraveBaseURL
	default:
		return nil, fmt.Errorf("websearch: unknown provider %q", cfg.Provider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("websearch: %s api key is required", provider)
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		provider: provider,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		logger:   logger,
	}, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Search implements ports.Searcher.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit < 1 {
		limit = 1
	}
	start := time.Now()
	var (
		results []domain.SearchResult
		err     error
	)
	if c.provider == ProviderBrave {
		results, err = c.brave(ctx, query, limit)
	} else {
		results, err = c.tavily(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	c.logger.DebugContext(ctx, "Web search",
		"provider", c.provider,
		"results", len(results),
		"duration", time.Since(start),
	)
	return results, nil
}

func (c *Client) tavily(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	body, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": limit,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

func (c *Client) brave(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	params := url.Values{"q": {query}, "count": {strconv.Itoa(limit)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/res/v1/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Subscription-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	var out struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(out.Web.Results))
	for _, r := range out.Web.Results {
		results = append(results, domain.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s search failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s search error (%d): %s", c.provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", c.provider, err)
	}
	return nil
}
