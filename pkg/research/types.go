package research

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult represents a single normalized search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Step is one entry of the research plan.
type Step struct {
	Text string `json:"text"`
}

// CompleteOptions constrains a single completion call.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// CompletionPort is the text-generation capability the pipeline depends on.
// Implementations report failures as TransientError or FatalError.
type CompletionPort interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
}

// SearchPort is the web-search capability. An empty result list with a nil
// error is a valid zero-hit response, distinct from a failure.
type SearchPort interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// Verdict is the reviewer's decision on the current brief.
type Verdict string

const (
	VerdictPending Verdict = "pending"
	VerdictPass    Verdict = "pass"
	VerdictRevise  Verdict = "revise"
)

// Review rule identifiers, ordered by severity.
const (
	RuleUnresolvedCitations = "unresolved_citations"
	RuleWordCount           = "word_count"
	RuleUnsupportedClaims   = "unsupported_claims"
)

// ReviewIssue is one violated rule found by the reviewer.
type ReviewIssue struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// ReviewReport carries the reviewer's objections into the writer's
// revision prompt.
type ReviewReport struct {
	Issues []ReviewIssue `json:"issues"`
}

func (r *ReviewReport) String() string {
	var b strings.Builder
	for i, issue := range r.Issues {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", issue.Rule, issue.Detail)
	}
	return b.String()
}

// Status is the terminal outcome of a run.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

// Result is what the run entry point hands back to CLI/server callers.
type Result struct {
	Plan          []Step                 `json:"plan"`
	SearchResults map[int][]SearchResult `json:"search_results"`
	Brief         string                 `json:"brief"`
	References    []Reference            `json:"references"`
	Status        Status                 `json:"status"`
	Verdict       Verdict                `json:"verdict"`
	Revisions     int                    `json:"revisions"`
	FailedStage   Stage                  `json:"failed_stage,omitempty"`
}

// Config holds the tunables of one pipeline run.
type Config struct {
	// NumResults is the per-step search result cap, clamped to [1,8].
	NumResults int
	// MaxConcurrentSearches bounds the researcher fan-out.
	MaxConcurrentSearches int
	// MaxBriefWords is the reviewer's word ceiling for the brief.
	MaxBriefWords int
	// MaxTokens is passed to the completion port.
	MaxTokens int
	// SemanticReview enables the reviewer's optional LLM claim check on top
	// of the mandatory syntactic validation.
	SemanticReview bool
	Retry          RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		NumResults:            5,
		MaxConcurrentSearches: 3,
		MaxBriefWords:         200,
		MaxTokens:             1024,
		Retry:                 DefaultRetryPolicy(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.NumResults < 1 {
		c.NumResults = def.NumResults
	}
	if c.NumResults > 8 {
		c.NumResults = 8
	}
	if c.MaxConcurrentSearches < 1 {
		c.MaxConcurrentSearches = def.MaxConcurrentSearches
	}
	if c.MaxBriefWords < 1 {
		c.MaxBriefWords = def.MaxBriefWords
	}
	if c.MaxTokens < 1 {
		c.MaxTokens = def.MaxTokens
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry = def.Retry
	}
	return c
}
