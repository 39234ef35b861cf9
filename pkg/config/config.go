package config

import (
	"os"
	"strconv"
)

type Config struct {
	OpenAIApiKey   string
	GoogleApiKey   string
	TavilyApiKey   string
	SerpApiKey     string
	SearchProvider string
	DatabaseURL    string
	Port           string
	ReasoningModel string
	FastModel      string
	EmbeddingModel string
	CollectionName string
	MaxWorkers     int
	SearchResults  int
	TopSources     int
	ChunkSize      int
	ChunkOverlap   int
}

func Load() *Config {
	return &Config{
		OpenAIApiKey:   getEnv("OPENAI_API_KEY", ""),
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		TavilyApiKey:   getEnv("TAVILY_API_KEY", ""),
		SerpApiKey:     getEnv("SERPAPI_API_KEY", ""),
		SearchProvider: getEnv("SEARCH_PROVIDER", "tavily"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Port:           getEnv("PORT", "8081"),
		ReasoningModel: getEnv("REASONING_MODEL", "gpt-4o"),
		FastModel:      getEnv("FAST_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: getEnv("COLLECTION_NAME", "research_library"),
		MaxWorkers:     getEnvAsInt("MAX_WORKERS", 8),
		SearchResults:  getEnvAsInt("SEARCH_RESULTS", 10),
		TopSources:     getEnvAsInt("TOP_SOURCES", 8),
		ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
