package research

import "encoding/json"

// Reference is one rendered citation registry entry.
type Reference struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Registry maps source URLs to stable 1-based citation indices. Indices are
// assigned on first sighting, dense and contiguous, and never reassigned
// within a run.
type Registry struct {
	index map[string]int
	urls  []string
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Assign returns the index for url, inserting it if unseen. Idempotent: the
// same URL always yields the same index.
func (r *Registry) Assign(url string) int {
	if n, ok := r.index[url]; ok {
		return n
	}
	r.urls = append(r.urls, url)
	n := len(r.urls)
	r.index[url] = n
	return n
}

// IndexOf returns the index assigned to url, if any.
func (r *Registry) IndexOf(url string) (int, bool) {
	n, ok := r.index[url]
	return n, ok
}

// Resolve returns the URL for a 1-based index.
func (r *Registry) Resolve(n int) (string, bool) {
	if n < 1 || n > len(r.urls) {
		return "", false
	}
	return r.urls[n-1], true
}

func (r *Registry) Len() int { return len(r.urls) }

// References renders the registry as an ordered [index] -> url list.
func (r *Registry) References() []Reference {
	refs := make([]Reference, len(r.urls))
	for i, u := range r.urls {
		refs[i] = Reference{Index: i + 1, URL: u}
	}
	return refs
}

// MarshalJSON serializes the registry as its ordered URL list, which is
// enough to reconstruct the index mapping.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.urls)
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return err
	}
	r.index = make(map[string]int, len(urls))
	r.urls = urls[:0]
	for _, u := range urls {
		if _, ok := r.index[u]; ok {
			continue
		}
		r.urls = append(r.urls, u)
		r.index[u] = len(r.urls)
	}
	return nil
}

// State is the single record threaded through every stage. It is owned by
// the orchestrator and mutated only by merging stage-returned updates.
type State struct {
	Query      string                 `json:"query"`
	Plan       []Step                 `json:"plan"`
	Registry   *Registry              `json:"references"`
	Results    map[int][]SearchResult `json:"results"`
	StepErrors map[int]string         `json:"step_errors,omitempty"`
	Brief      string                 `json:"brief"`
	Review     *ReviewReport          `json:"review,omitempty"`
	Verdict    Verdict                `json:"verdict"`
	Revisions  int                    `json:"revisions"`
}

func NewState(query string) *State {
	return &State{
		Query:    query,
		Registry: NewRegistry(),
		Results:  make(map[int][]SearchResult),
		Verdict:  VerdictPending,
	}
}

// Update is a stage's partial contribution to the state. Zero-valued fields
// are left untouched by apply, so a stage never erases another stage's data.
type Update struct {
	Plan []Step
	// Results maps step index to its normalized, deduplicated hits.
	Results map[int][]SearchResult
	// StepErrors records per-step search failures that were tolerated.
	StepErrors map[int]string
	// Citations lists newly seen URLs in deterministic step order; apply
	// inserts them into the registry.
	Citations []string
	Brief     *string
	Verdict   Verdict
	Review    *ReviewReport
}

func (s *State) apply(u Update) {
	if len(u.Plan) > 0 && len(s.Plan) == 0 {
		s.Plan = u.Plan
	}
	for step, res := range u.Results {
		s.Results[step] = res
	}
	if len(u.StepErrors) > 0 {
		if s.StepErrors == nil {
			s.StepErrors = make(map[int]string)
		}
		for step, msg := range u.StepErrors {
			s.StepErrors[step] = msg
		}
	}
	for _, url := range u.Citations {
		s.Registry.Assign(url)
	}
	if u.Brief != nil {
		s.Brief = *u.Brief
	}
	if u.Verdict != "" {
		s.Verdict = u.Verdict
	}
	if u.Review != nil {
		s.Review = u.Review
	}
}
