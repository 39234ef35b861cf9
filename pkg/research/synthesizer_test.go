package research

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSynthesizeOrdersFindingsBySplitterOrder(t *testing.T) {
	llm := &fakeLLM{responses: []string{"report"}}
	s := NewSynthesizer(llm)

	subtopics := []string{"zeta", "alpha", "mid"}
	findings := map[string]string{
		"alpha": "finding A",
		"mid":   "finding M",
		"zeta":  "finding Z",
	}

	report, err := s.Synthesize(context.Background(), "topic", subtopics, findings)
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if report != "report" {
		t.Errorf("report must be the verbatim LLM response, got %q", report)
	}

	prompt := llm.lastCall().user
	zi := strings.Index(prompt, "## Sub-topic: zeta")
	ai := strings.Index(prompt, "## Sub-topic: alpha")
	mi := strings.Index(prompt, "## Sub-topic: mid")
	if zi < 0 || ai < 0 || mi < 0 {
		t.Fatalf("missing sub-topic blocks in prompt:\n%s", prompt)
	}
	if !(zi < ai && ai < mi) {
		t.Errorf("findings must follow splitter order, got positions %d %d %d", zi, ai, mi)
	}
	if !strings.Contains(prompt, "## Sub-topic: zeta\nfinding Z\n\n") {
		t.Error("block layout must be \"## Sub-topic: {s}\\n{finding}\\n\\n\"")
	}
}

func TestSynthesizeRendersDuplicateSubtopicOnce(t *testing.T) {
	llm := &fakeLLM{responses: []string{"report"}}
	s := NewSynthesizer(llm)

	_, err := s.Synthesize(context.Background(), "topic", []string{"dup", "dup"}, map[string]string{"dup": "finding"})
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if n := strings.Count(llm.lastCall().user, "## Sub-topic: dup"); n != 1 {
		t.Errorf("duplicate subtopic rendered %d times, want 1", n)
	}
}

func TestSynthesizeEmptyFindings(t *testing.T) {
	llm := &fakeLLM{responses: []string{"a report with no findings"}}
	s := NewSynthesizer(llm)

	report, err := s.Synthesize(context.Background(), "topic", nil, map[string]string{})
	if err != nil {
		t.Fatalf("Synthesize must still run with zero findings: %v", err)
	}
	if report == "" {
		t.Error("expected the synthesis response to pass through")
	}
	if llm.callCount() != 1 {
		t.Errorf("expected exactly one LLM call, got %d", llm.callCount())
	}
}

func TestSynthesizeErrorIsFatal(t *testing.T) {
	cause := errors.New("quota exceeded")
	llm := &fakeLLM{fn: func(ctx context.Context, _, _ string, _ bool) (string, error) {
		return "", cause
	}}
	s := NewSynthesizer(llm)

	_, err := s.Synthesize(context.Background(), "topic", []string{"a"}, map[string]string{"a": "f"})

	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SynthesisError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause must be reachable via errors.Is")
	}
}
