package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const arxivBaseURL = "https://export.arxiv.org/api/query"

// ArxivClient queries the public arXiv Atom API. No credential needed.
type ArxivClient struct {
	baseURL string
	client  *http.Client
}

func NewArxivClient() *ArxivClient {
	return &ArxivClient{
		baseURL: arxivBaseURL,
		client:  newHTTPClient(),
	}
}

// arxivEntry holds a single arXiv feed entry
type arxivEntry struct {
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	Link    []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

func (c *ArxivClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Add("search_query", query)
	params.Add("max_results", strconv.Itoa(maxResults))
	params.Add("start", "0")

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
		return nil, fmt.Errorf("arxiv returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	results := make([]Result, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		link := ""
		for _, l := range entry.Link {
			// Prefer the abstract page; fall back to the PDF link.
			if l.Rel == "alternate" {
				link = l.Href
				break
			}
			if l.Type == "application/pdf" && link == "" {
				link = l.Href
			}
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		results = append(results, Result{
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(entry.Summary),
		})
	}
	return results, nil
}
