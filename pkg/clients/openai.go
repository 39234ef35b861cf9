package clients

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// ModelType is an enum for the available chat-completion models.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel ModelType = "gpt-4o"
	FastModel    ModelType = "gpt-4o-mini"
)

func OpenAI(apiKey string, model ModelType) (*openai.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultModel
	}

	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init OpenAI client: %w", err)
	}

	return llm, nil
}
