package research

import (
	"context"
	"fmt"
	"strings"
)

// SynthesisError marks a failed final synthesis call. Unlike research
// step failures it is fatal to the run.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// Synthesizer folds all findings into the final report with one LLM
// call.
type Synthesizer struct {
	llm CompletionClient
}

func NewSynthesizer(llm CompletionClient) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize builds the findings prompt in splitter order, so report
// regeneration from the same findings is reproducible. Duplicate
// sub-topics are rendered once. The call happens exactly once per run
// regardless of how many findings there are, including zero.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, subtopics []string, findings map[string]string) (string, error) {
	var b strings.Builder
	rendered := make(map[string]bool)
	for _, sub := range subtopics {
		if rendered[sub] {
			continue
		}
		rendered[sub] = true
		fmt.Fprintf(&b, "## Sub-topic: %s\n%s\n\n", sub, findings[sub])
	}

	report, err := s.llm.Complete(ctx, synthesizerSystemPrompt, fmt.Sprintf(synthesizerUserPrompt, topic, b.String()), false)
	if err != nil {
		return "", &SynthesisError{Err: err}
	}
	return report, nil
}
