package clients

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Completer adapts a langchaingo model to the single-shot completion
// surface the research pipeline consumes: one system prompt, one user
// prompt, one response. It holds no state beyond the model itself.
type Completer struct {
	model llms.Model
}

func NewCompleter(model llms.Model) *Completer {
	return &Completer{model: model}
}

// Complete sends one chat-completion request. When jsonMode is set the
// model is asked for a JSON response body; the caller is responsible
// for parsing it.
func (c *Completer) Complete(ctx context.Context, systemPrompt, userPrompt string, jsonMode bool) (string, error) {
	prompts := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	var opts []llms.CallOption
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, prompts, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return resp.Choices[0].Content, nil
}
