package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mikeboe/research-brief/pkg/research"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper queries the Serper.dev API. Requires SERPER_API_KEY.
type Serper struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewSerper(apiKey string) (*Serper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY required for Serper")
	}
	return &Serper{apiKey: apiKey, endpoint: serperEndpoint, client: defaultClient}, nil
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (s *Serper) Search(ctx context.Context, query string, count int) ([]research.SearchResult, error) {
	count = clampCount(count)

	payload, err := json.Marshal(map[string]any{"q": query, "num": count})
	if err != nil {
		return nil, research.Fatal(fmt.Errorf("build serper payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, research.Fatal(fmt.Errorf("build serper request: %w", err))
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, research.Transient(fmt.Errorf("serper request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("serper", resp.StatusCode)
	}

	var body serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, research.Transient(fmt.Errorf("decode serper response: %w", err))
	}

	results := make([]research.SearchResult, 0, count)
	for _, item := range body.Organic {
		results = append(results, research.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
		if len(results) == count {
			break
		}
	}
	return results, nil
}
