// Package clients wires LLM providers into the pipeline's CompletionPort.
package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/research-brief/pkg/research"
)

// Providers supported by NewCompletion.
const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderCustom    = "custom"
)

// NewCompletion builds a CompletionPort backed by the named provider. API
// keys come from the environment (ANTHROPIC_API_KEY, GOOGLE_API_KEY,
// OPENAI_API_KEY).
func NewCompletion(ctx context.Context, provider, model string) (research.CompletionPort, error) {
	var (
		llm llms.Model
		err error
	)
	switch provider {
	case ProviderAnthropic:
		llm, err = Anthropic(model)
	case ProviderGoogle:
		llm, err = GoogleAI(ctx, model)
	case ProviderOpenAI, ProviderOllama, ProviderCustom:
		llm, err = OpenAI(provider, model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: anthropic, google, openai, ollama, custom)", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", provider, err)
	}
	return &Completion{llm: llm}, nil
}

// Completion adapts a langchaingo model to the CompletionPort contract,
// translating provider failures into the retry taxonomy.
type Completion struct {
	llm llms.Model
}

func (c *Completion) Complete(ctx context.Context, prompt string, opts research.CompleteOptions) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithMaxTokens(opts.MaxTokens),
		llms.WithTemperature(opts.Temperature),
	)
	if err != nil {
		return "", classifyLLMError(err)
	}
	return out, nil
}

// classifyLLMError decides retryability from the provider error. Auth and
// request validation failures will not clear on retry; everything else
// (network, timeout, rate limit, overload) is treated as transient.
func classifyLLMError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"api key", "unauthorized", "authentication", "invalid request", "status code: 400", "status code: 401", "status code: 403"} {
		if strings.Contains(msg, marker) {
			return research.Fatal(err)
		}
	}
	return research.Transient(err)
}
