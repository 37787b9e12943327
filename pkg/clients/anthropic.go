package clients

import (
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/anthropic"
)

const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

func Anthropic(model string) (*anthropic.LLM, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, err
	}
	return llm, nil
}
