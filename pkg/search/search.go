package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mikeboe/scholar-agent/pkg/config"
)

// Result represents a single search hit as returned by a provider.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Client is the search capability consumed by the research pipeline.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// NewClient builds the search client selected by SEARCH_PROVIDER.
// Constructors fail before any network call when the provider's
// credential is missing.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.SearchProvider {
	case "tavily":
		return NewTavilyClient(cfg.TavilyApiKey)
	case "serpapi":
		return NewSerpAPIClient(cfg.SerpApiKey)
	case "arxiv":
		return NewArxivClient(), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.SearchProvider)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
