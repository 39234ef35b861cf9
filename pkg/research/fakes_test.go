package research

import (
	"context"
	"sync"

	"github.com/mikeboe/scholar-agent/pkg/search"
)

// fakeLLM scripts completion responses per call. When fn is set it
// handles everything; otherwise responses are returned in order.
type fakeLLM struct {
	fn        func(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error)
	responses []string

	mu    sync.Mutex
	calls []llmCall
}

type llmCall struct {
	system   string
	user     string
	jsonMode bool
}

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, llmCall{system: systemPrompt, user: userPrompt, jsonMode: jsonMode})
	idx := len(f.calls) - 1
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ctx, systemPrompt, userPrompt, jsonMode)
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) lastCall() llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// fakeSearch returns canned hits or delegates to fn.
type fakeSearch struct {
	fn   func(ctx context.Context, query string, maxResults int) ([]search.Result, error)
	hits []search.Result
	err  error
}

func (f *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if f.fn != nil {
		return f.fn(ctx, query, maxResults)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}
