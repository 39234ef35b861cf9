package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const serpAPIBaseURL = "https://serpapi.com/search.json"

// SerpAPIClient queries Google results through the SerpAPI service.
type SerpAPIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSerpAPIClient(apiKey string) (*SerpAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SERPAPI_API_KEY is not set")
	}
	return &SerpAPIClient{
		apiKey:  apiKey,
		baseURL: serpAPIBaseURL,
		client:  newHTTPClient(),
	}, nil
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (c *SerpAPIClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	// SerpAPI caps num at 20 per request.
	if maxResults > 20 {
		maxResults = 20
	}

	params := url.Values{}
	params.Add("engine", "google")
	params.Add("q", query)
	params.Add("num", strconv.Itoa(maxResults))
	params.Add("hl", "en")
	params.Add("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serpapi returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}

	results := make([]Result, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if r.Title == "" || r.Link == "" {
			continue
		}
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}
