package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikeboe/scholar-agent/pkg/search"
)

// contextSources is how many sources are embedded into the research
// prompt.
const contextSources = 3

// ResearchError marks a failed research step and names the sub-topic it
// belongs to. The pipeline converts it to an inline finding instead of
// aborting the run.
type ResearchError struct {
	Subtopic string
	Err      error
}

func (e *ResearchError) Error() string {
	return fmt.Sprintf("research on %q failed: %v", e.Subtopic, e.Err)
}

func (e *ResearchError) Unwrap() error {
	return e.Err
}

// Researcher answers one sub-topic at a time: search, curate, then one
// summarization call. Stateless across sub-topics, safe for concurrent
// use.
type Researcher struct {
	llm        CompletionClient
	search     search.Client
	maxResults int
	topSources int
}

// NewResearcher wires the research step. maxResults is passed to the
// search provider; topSources caps the curated list kept for the report
// (0 skips curation and uses raw provider order).
func NewResearcher(llm CompletionClient, searchClient search.Client, maxResults, topSources int) *Researcher {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Researcher{
		llm:        llm,
		search:     searchClient,
		maxResults: maxResults,
		topSources: topSources,
	}
}

// Research produces the finding for one sub-topic along with the sources
// it was grounded on. Search and LLM failures come back wrapped in a
// *ResearchError; this step itself never retries.
func (r *Researcher) Research(ctx context.Context, subtopic string) (string, []CuratedSource, error) {
	hits, err := r.search.Search(ctx, subtopic, r.maxResults)
	if err != nil {
		return "", nil, &ResearchError{Subtopic: subtopic, Err: fmt.Errorf("search failed: %w", err)}
	}

	var sources []CuratedSource
	if r.topSources > 0 {
		sources = Curate(subtopic, hits, r.topSources)
	} else {
		sources = make([]CuratedSource, 0, len(hits))
		for _, h := range hits {
			sources = append(sources, CuratedSource{Title: h.Title, URL: h.URL, Snippet: h.Snippet, Score: h.Score})
		}
	}

	prompt := fmt.Sprintf(researcherUserPrompt, subtopic, contextBlock(sources))
	finding, err := r.llm.Complete(ctx, researcherSystemPrompt, prompt, false)
	if err != nil {
		return "", nil, &ResearchError{Subtopic: subtopic, Err: err}
	}

	return finding, sources, nil
}

// contextBlock renders the top sources as "Source: {url}\nContent: {snippet}"
// blocks separated by blank lines.
func contextBlock(sources []CuratedSource) string {
	n := len(sources)
	if n > contextSources {
		n = contextSources
	}
	blocks := make([]string, 0, n)
	for _, s := range sources[:n] {
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", s.URL, s.Snippet))
	}
	return strings.Join(blocks, "\n\n")
}
