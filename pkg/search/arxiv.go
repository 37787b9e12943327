package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mikeboe/research-brief/pkg/research"
)

const arxivEndpoint = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. No API key needed, which makes it the
// zero-setup default for academic queries.
type Arxiv struct {
	endpoint string
	client   *http.Client
}

func NewArxiv() *Arxiv {
	return &Arxiv{endpoint: arxivEndpoint, client: defaultClient}
}

// arxivEntry holds one entry of the Atom feed.
type arxivEntry struct {
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	ID      string      `xml:"id"`
	Link    []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []arxivEntry `xml:"entry"`
}

func (a *Arxiv) Search(ctx context.Context, query string, count int) ([]research.SearchResult, error) {
	count = clampCount(count)

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("max_results", strconv.Itoa(count))
	params.Set("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, research.Fatal(fmt.Errorf("build arxiv request: %w", err))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, research.Transient(fmt.Errorf("arxiv request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("arxiv", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, research.Transient(fmt.Errorf("read arxiv response: %w", err))
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, research.Transient(fmt.Errorf("unmarshal arxiv feed: %w", err))
	}

	results := make([]research.SearchResult, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		link := entry.ID
		for _, l := range entry.Link {
			if l.Type == "application/pdf" {
				link = l.Href
				break
			}
		}
		results = append(results, research.SearchResult{
			Title:   strings.Join(strings.Fields(entry.Title), " "),
			URL:     link,
			Snippet: strings.TrimSpace(entry.Summary),
		})
	}
	return results, nil
}
