package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mikeboe/research-brief/pkg/research"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave queries the Brave Search API. Requires BRAVE_API_KEY.
type Brave struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewBrave(apiKey string) (*Brave, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY required for Brave Search")
	}
	return &Brave{apiKey: apiKey, endpoint: braveEndpoint, client: defaultClient}, nil
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]research.SearchResult, error) {
	count = clampCount(count)

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, research.Fatal(fmt.Errorf("build brave request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, research.Transient(fmt.Errorf("brave request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("brave", resp.StatusCode)
	}

	var body braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, research.Transient(fmt.Errorf("decode brave response: %w", err))
	}

	results := make([]research.SearchResult, 0, count)
	for _, item := range body.Web.Results {
		results = append(results, research.SearchResult{
			Title:   item.Title,
			URL:     item.URL,
			Snippet: item.Description,
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}
