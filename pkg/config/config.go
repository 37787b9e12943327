package config

import (
	"os"
	"strconv"
)

type Config struct {
	LLMProvider           string
	ModelName             string
	SearchProvider        string
	NumResults            int
	MaxConcurrentSearches int
	SemanticReview        bool
	Port                  string
	DatabaseURL           string
}

func Load() *Config {
	return &Config{
		LLMProvider:           getEnv("LLM_PROVIDER", "anthropic"),
		ModelName:             getEnv("MODEL_NAME", ""),
		SearchProvider:        getEnv("SEARCH_PROVIDER", "brave"),
		NumResults:            getEnvAsInt("NUM_RESULTS", 5),
		MaxConcurrentSearches: getEnvAsInt("MAX_CONCURRENT_SEARCHES", 3),
		SemanticReview:        getEnvAsBool("SEMANTIC_REVIEW", false),
		Port:                  getEnv("PORT", "8081"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
