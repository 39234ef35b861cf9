package research

import (
	"context"
)

// CompletionClient is the chat-completion capability injected into every
// agent. jsonMode asks the provider for a JSON response body; the caller
// parses it.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error)
}

// ProgressFunc receives progress events from a pipeline run. Events are
// observational only and never affect control flow. The scale is phase
// units out of 3: splitting sits near 0, research completions move from
// 1 to 2, synthesis finishes at 3.
type ProgressFunc func(message string, completed, total float64)

// CuratedSource is a search hit retained after deduplication and scoring.
type CuratedSource struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Result is the outcome of a single pipeline run. Findings keys are the
// literal sub-topic strings returned by the splitter; duplicate sub-topics
// collapse to one entry (last writer wins under concurrent completion).
type Result struct {
	Topic     string            `json:"topic"`
	Subtopics []string          `json:"subtopics"`
	Findings  map[string]string `json:"findings"`
	Report    string            `json:"report"`
	Sources   []CuratedSource   `json:"sources"`
}
