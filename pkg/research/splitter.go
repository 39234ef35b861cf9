package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TopicSplitter asks the LLM to partition a topic into three focused
// sub-topics. The response is parsed with deliberately permissive rules:
// a malformed body degrades to zero sub-topics instead of failing the
// run.
type TopicSplitter struct {
	llm CompletionClient
}

func NewTopicSplitter(llm CompletionClient) *TopicSplitter {
	return &TopicSplitter{llm: llm}
}

// Split performs exactly one LLM call. A transport or provider error is
// returned to the caller; an unparseable response body is not an error
// and yields an empty list.
func (s *TopicSplitter) Split(ctx context.Context, topic string) ([]string, error) {
	content, err := s.llm.Complete(ctx, splitterSystemPrompt, fmt.Sprintf(splitterUserPrompt, topic), true)
	if err != nil {
		return nil, fmt.Errorf("topic split failed: %w", err)
	}
	return ParseSubtopics(content), nil
}

// ParseSubtopics unwraps the model's JSON response into a list of
// sub-topic strings:
//
//   - a JSON array is returned directly;
//   - for a JSON object, the first value (in insertion order) that is
//     itself an array wins; if no value is an array, all values are
//     returned in insertion order; an empty object yields an empty list;
//   - anything else, including a body that is not valid JSON, yields an
//     empty list.
//
// Non-string elements are rendered back to their JSON text.
func ParseSubtopics(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if !json.Valid([]byte(trimmed)) {
		return []string{}
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return []string{}
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// Scalar at top level: neither a list nor an object.
		return []string{}
	}

	switch delim {
	case '[':
		return decodeElements(dec)
	case '{':
		return unwrapObject(dec)
	}
	return []string{}
}

func decodeElements(dec *json.Decoder) []string {
	out := []string{}
	for dec.More() {
		var v any
		if err := dec.Decode(&v); err != nil {
			return []string{}
		}
		out = append(out, stringifyValue(v))
	}
	return out
}

// unwrapObject walks the object's entries in insertion order, which is
// why this works on decoder tokens rather than a map.
func unwrapObject(dec *json.Decoder) []string {
	var values []json.RawMessage
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return []string{}
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return []string{}
		}
		values = append(values, v)
	}

	for _, v := range values {
		if isJSONArray(v) {
			var list []any
			if err := json.Unmarshal(v, &list); err != nil {
				continue
			}
			out := make([]string, 0, len(list))
			for _, e := range list {
				out = append(out, stringifyValue(e))
			}
			return out
		}
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		var e any
		if err := json.Unmarshal(v, &e); err != nil {
			continue
		}
		out = append(out, stringifyValue(e))
	}
	return out
}

func isJSONArray(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "[")
}

func stringifyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
