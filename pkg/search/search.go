// Package search provides SearchPort implementations for the supported
// web search providers.
package search

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mikeboe/research-brief/pkg/research"
)

// Providers supported by New.
const (
	ProviderBrave  = "brave"
	ProviderSerper = "serper"
	ProviderArxiv  = "arxiv"
)

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// New returns the SearchPort for the named provider, reading API keys from
// the environment.
func New(provider string) (research.SearchPort, error) {
	switch provider {
	case ProviderBrave:
		return NewBrave(os.Getenv("BRAVE_API_KEY"))
	case ProviderSerper:
		return NewSerper(os.Getenv("SERPER_API_KEY"))
	case ProviderArxiv:
		return NewArxiv(), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: brave, serper, arxiv)", provider)
	}
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// classifyStatus maps a non-200 response to the pipeline's error taxonomy:
// rate limits and server errors are retryable, auth and request errors are
// not.
func classifyStatus(provider string, status int) error {
	err := fmt.Errorf("%s returned status %d", provider, status)
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return research.Transient(err)
	default:
		return research.Fatal(err)
	}
}
