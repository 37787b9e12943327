package clients

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI covers the OpenAI API and any OpenAI-compatible endpoint: "ollama"
// points at a local Ollama server, "custom" at a self-hosted endpoint from
// OPENAI_BASE_URL.
func OpenAI(provider, model string) (*openai.LLM, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts := []openai.Option{openai.WithModel(model)}

	switch provider {
	case ProviderOllama:
		baseURL := os.Getenv("OLLAMA_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		opts = append(opts, openai.WithBaseURL(baseURL), openai.WithToken("not-needed"))
	case ProviderCustom:
		baseURL := os.Getenv("OPENAI_BASE_URL")
		if baseURL == "" {
			return nil, fmt.Errorf("OPENAI_BASE_URL is not set for custom provider")
		}
		token := os.Getenv("OPENAI_API_KEY")
		if token == "" {
			token = "not-needed"
		}
		opts = append(opts, openai.WithBaseURL(baseURL), openai.WithToken(token))
	default:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		opts = append(opts, openai.WithToken(apiKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}
