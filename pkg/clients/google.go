package clients

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
)

const (
	GeminiFlash ModelType = "gemini-3-flash-preview"
	GeminiPro   ModelType = "gemini-3-pro-preview"
)

// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
func GoogleAI(ctx context.Context, apiKey string, model ModelType) (*googleai.GoogleAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	if model == "" {
		model = GeminiFlash
	}

	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to init Google AI client: %w", err)
	}

	return llm, nil
}
