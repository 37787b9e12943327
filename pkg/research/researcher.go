package research

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// researchStage fans out one search per plan step, bounded by
// MaxConcurrentSearches. Raw results are collected per step; after every step
// has finished, a single pass in step order normalizes, deduplicates and
// assigns citation indices, so the registry is deterministic regardless of
// completion order and never observed half-assigned.
func (o *Orchestrator) researchStage(ctx context.Context, st *State) (Update, error) {
	type outcome struct {
		results []SearchResult
		err     error
	}

	outcomes := make([]outcome, len(st.Plan))
	sem := make(chan struct{}, o.cfg.MaxConcurrentSearches)
	var wg sync.WaitGroup

	for i, step := range st.Plan {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return
			}

			res, err := Retry(ctx, o.cfg.Retry, func(ctx context.Context) ([]SearchResult, error) {
				return o.search.Search(ctx, query, o.cfg.NumResults)
			})
			outcomes[i] = outcome{results: res, err: err}
		}(i, step.Text)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	upd := Update{
		Results:    make(map[int][]SearchResult, len(st.Plan)),
		StepErrors: make(map[int]string),
	}

	// Deterministic pass in step order: dedupe across steps and against
	// anything already in the registry, recording new URLs in first-seen
	// order for index assignment.
	seen := make(map[string]bool)
	for _, ref := range st.Registry.References() {
		seen[ref.URL] = true
	}

	for i := range st.Plan {
		if err := outcomes[i].err; err != nil {
			// A single step's failure never aborts the run.
			o.Logger.Warn("search step failed, continuing", "step", i, "error", err)
			upd.Results[i] = []SearchResult{}
			upd.StepErrors[i] = err.Error()
			continue
		}

		kept := make([]SearchResult, 0, len(outcomes[i].results))
		for _, r := range normalizeResults(outcomes[i].results, o.cfg.NumResults) {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			kept = append(kept, r)
			upd.Citations = append(upd.Citations, r.URL)
		}
		upd.Results[i] = kept
		o.Logger.Info("search step complete", "step", i, "results", len(kept))
	}

	return upd, nil
}

// normalizeResults trims fields, drops entries with empty titles or invalid
// URLs, and caps the list at count.
func normalizeResults(results []SearchResult, count int) []SearchResult {
	normalized := make([]SearchResult, 0, len(results))
	for _, r := range results {
		r.Title = strings.TrimSpace(r.Title)
		r.URL = strings.TrimSpace(r.URL)
		r.Snippet = strings.TrimSpace(r.Snippet)
		if r.Title == "" || !validURL(r.URL) {
			continue
		}
		normalized = append(normalized, r)
		if len(normalized) == count {
			break
		}
	}
	return normalized
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
