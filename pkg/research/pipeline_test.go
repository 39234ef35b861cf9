package research

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/scholar-agent/pkg/search"
)

type progressEvent struct {
	message   string
	completed float64
	total     float64
}

type progressRecorder struct {
	events []progressEvent
}

func (r *progressRecorder) record(message string, completed, total float64) {
	r.events = append(r.events, progressEvent{message, completed, total})
}

// subtopicFromPrompt pulls the sub-topic back out of the researcher user
// prompt.
func subtopicFromPrompt(user string) string {
	const marker = "Sub-topic: "
	i := strings.Index(user, marker)
	if i < 0 {
		return ""
	}
	rest := user[i+len(marker):]
	if j := strings.Index(rest, "\n"); j >= 0 {
		return rest[:j]
	}
	return rest
}

// scriptedLLM routes calls by system prompt: split response is fixed,
// research echoes the sub-topic, synthesis returns a fixed report.
func scriptedLLM(splitResponse string) *fakeLLM {
	llm := &fakeLLM{}
	llm.fn = func(ctx context.Context, system, user string, jsonMode bool) (string, error) {
		switch system {
		case splitterSystemPrompt:
			return splitResponse, nil
		case researcherSystemPrompt:
			return "finding for " + subtopicFromPrompt(user), nil
		case synthesizerSystemPrompt:
			return "final report", nil
		}
		return "", errors.New("unexpected system prompt")
	}
	return llm
}

func (f *fakeLLM) synthesisPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.system == synthesizerSystemPrompt {
			return c.user
		}
	}
	return ""
}

func (f *fakeLLM) synthesisCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.system == synthesizerSystemPrompt {
			n++
		}
	}
	return n
}

func newTestPipeline(llm CompletionClient, sc search.Client) *Pipeline {
	p := NewPipeline(
		NewTopicSplitter(llm),
		NewResearcher(llm, sc, 5, 0),
		NewSynthesizer(llm),
	)
	p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return p
}

func TestRunPartialFailureContainment(t *testing.T) {
	llm := scriptedLLM(`["a","b","c"]`)
	sc := &fakeSearch{fn: func(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
		if query == "b" {
			return nil, errors.New("search backend down")
		}
		return []search.Result{{Title: query, URL: "https://example.com/" + query, Snippet: "s"}}, nil
	}}

	result, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", nil)
	require.NoError(t, err, "one failed sub-topic must never fail the run")

	require.Len(t, result.Findings, 3)
	assert.Equal(t, "finding for a", result.Findings["a"])
	assert.Equal(t, "finding for c", result.Findings["c"])
	assert.True(t, strings.HasPrefix(result.Findings["b"], "Error: "),
		"failed sub-topic must record an Error: finding, got %q", result.Findings["b"])

	errorFindings := 0
	for _, f := range result.Findings {
		if strings.HasPrefix(f, "Error: ") {
			errorFindings++
		}
	}
	assert.Equal(t, 1, errorFindings)

	// The synthesizer must still see all three entries, error included.
	prompt := llm.synthesisPrompt()
	assert.Contains(t, prompt, "## Sub-topic: a")
	assert.Contains(t, prompt, "## Sub-topic: b")
	assert.Contains(t, prompt, "## Sub-topic: c")
	assert.Contains(t, prompt, "Error: ")
	assert.Equal(t, "final report", result.Report)
}

func TestRunEmptySplit(t *testing.T) {
	llm := scriptedLLM(`not json at all`)
	sc := &fakeSearch{}
	rec := &progressRecorder{}

	result, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", rec.record)
	require.NoError(t, err)

	assert.Empty(t, result.Subtopics)
	assert.Empty(t, result.Findings)
	assert.Equal(t, 1, llm.synthesisCalls(), "synthesis must run exactly once even with zero findings")
	assert.NotEmpty(t, result.Report)

	// No research-phase events: splitting, synthesizing, complete only.
	require.Len(t, rec.events, 3)
	assert.Equal(t, "Splitting topic...", rec.events[0].message)
	assert.Equal(t, "Synthesizing findings...", rec.events[1].message)
	assert.Equal(t, "Research complete", rec.events[2].message)
}

func TestRunProgressEvents(t *testing.T) {
	llm := scriptedLLM(`["a","b","c"]`)
	sc := &fakeSearch{hits: []search.Result{{Title: "t", URL: "https://x.com", Snippet: "s"}}}
	rec := &progressRecorder{}

	_, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", rec.record)
	require.NoError(t, err)

	require.Len(t, rec.events, 6)

	first := rec.events[0]
	assert.Equal(t, "Splitting topic...", first.message)
	assert.InDelta(t, 0.1, first.completed, 1e-9)
	assert.InDelta(t, 3, first.total, 1e-9)

	// Research completions land between 1 and 2 in completion order; the
	// fractions themselves are fixed even though the order is not.
	fractions := []float64{rec.events[1].completed, rec.events[2].completed, rec.events[3].completed}
	assert.InDelta(t, 1+1.0/3, fractions[0], 1e-9)
	assert.InDelta(t, 1+2.0/3, fractions[1], 1e-9)
	assert.InDelta(t, 2, fractions[2], 1e-9)
	for _, e := range rec.events[1:4] {
		assert.True(t, strings.HasPrefix(e.message, "Researched: "), "unexpected event %q", e.message)
		assert.InDelta(t, 3, e.total, 1e-9)
	}

	assert.Equal(t, "Synthesizing findings...", rec.events[4].message)
	last := rec.events[5]
	assert.Equal(t, "Research complete", last.message)
	assert.InDelta(t, 3, last.completed, 1e-9)
	assert.InDelta(t, 3, last.total, 1e-9)
}

func TestRunDuplicateSubtopicsCollapse(t *testing.T) {
	llm := scriptedLLM(`["same","same"]`)
	sc := &fakeSearch{hits: []search.Result{{Title: "t", URL: "https://x.com", Snippet: "s"}}}
	rec := &progressRecorder{}

	result, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", rec.record)
	require.NoError(t, err)

	// Both steps run and both report progress, but the map keeps one key.
	assert.Len(t, result.Findings, 1)
	assert.Len(t, result.Subtopics, 2)
	assert.Len(t, rec.events, 5)
}

func TestRunParallelism(t *testing.T) {
	llm := scriptedLLM(`["s1","s2","s3","s4","s5"]`)
	sc := &fakeSearch{fn: func(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
		time.Sleep(50*time.Millisecond + time.Duration(rand.Intn(20))*time.Millisecond)
		return []search.Result{{Title: query, URL: "https://x.com/" + query, Snippet: "s"}}, nil
	}}

	start := time.Now()
	result, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, result.Findings, 5)

	// Five 50-70ms steps serialized would take at least 250ms; run in
	// parallel they should finish close to the slowest single step.
	assert.Less(t, elapsed, 200*time.Millisecond, "research steps appear to run serially")
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestRunBlankTopic(t *testing.T) {
	llm := scriptedLLM(`[]`)
	p := newTestPipeline(llm, &fakeSearch{})

	_, err := p.Run(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.Zero(t, llm.callCount(), "no LLM call may happen for a blank topic")
}

func TestRunSynthesisErrorPropagates(t *testing.T) {
	cause := errors.New("context length exceeded")
	llm := &fakeLLM{}
	llm.fn = func(ctx context.Context, system, user string, jsonMode bool) (string, error) {
		switch system {
		case splitterSystemPrompt:
			return `["a"]`, nil
		case researcherSystemPrompt:
			return "finding", nil
		default:
			return "", cause
		}
	}
	sc := &fakeSearch{hits: []search.Result{{Title: "t", URL: "https://x.com", Snippet: "s"}}}

	_, err := newTestPipeline(llm, sc).Run(context.Background(), "topic", nil)

	var se *SynthesisError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)
}
