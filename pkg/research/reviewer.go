package research

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// reviewStage validates the brief. The syntactic checks - every [n] marker
// resolves in the registry, word count within the ceiling - are mandatory and
// make no external calls. An optional LLM claim check runs only when enabled,
// and its failure degrades to the syntactic verdict rather than blocking.
func (o *Orchestrator) reviewStage(ctx context.Context, st *State) (Update, error) {
	var issues []ReviewIssue

	if unresolved := unresolvedMarkers(st.Brief, st.Registry); len(unresolved) > 0 {
		issues = append(issues, ReviewIssue{
			Rule:   RuleUnresolvedCitations,
			Detail: fmt.Sprintf("markers %v do not resolve to any assigned citation index", unresolved),
		})
	}

	if wc := countWords(st.Brief); wc > o.cfg.MaxBriefWords {
		issues = append(issues, ReviewIssue{
			Rule:   RuleWordCount,
			Detail: fmt.Sprintf("brief is %d words, ceiling is %d", wc, o.cfg.MaxBriefWords),
		})
	}

	if len(issues) == 0 && o.cfg.SemanticReview {
		if issue, ok := o.semanticCheck(ctx, st.Brief); ok {
			issues = append(issues, issue)
		}
	}

	if len(issues) > 0 {
		report := &ReviewReport{Issues: issues}
		o.Logger.Info("review verdict", "verdict", VerdictRevise, "issues", report.String())
		return Update{Verdict: VerdictRevise, Review: report}, nil
	}

	o.Logger.Info("review verdict", "verdict", VerdictPass)
	return Update{Verdict: VerdictPass}, nil
}

// semanticCheck asks the completion port whether every claim is attributable.
// Best effort only: any port failure is logged and ignored.
func (o *Orchestrator) semanticCheck(ctx context.Context, brief string) (ReviewIssue, bool) {
	prompt := fmt.Sprintf(`You are a fact-checker reviewing research briefs. Verify that all factual claims carry inline citations [1][2][3].

Respond with EXACTLY ONE of:
- APPROVED if all claims are properly cited
- NEEDS_REVISION: <specific reason> if citations are missing or inadequate

Review this research brief:

%s`, brief)

	out, err := Retry(ctx, o.cfg.Retry, func(ctx context.Context) (string, error) {
		return o.completion.Complete(ctx, prompt, CompleteOptions{MaxTokens: 256})
	})
	if err != nil {
		o.Logger.Warn("semantic review unavailable, keeping syntactic verdict", "error", err)
		return ReviewIssue{}, false
	}

	if strings.Contains(strings.ToUpper(out), "NEEDS_REVISION") {
		reason := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "NEEDS_REVISION:"))
		return ReviewIssue{Rule: RuleUnsupportedClaims, Detail: reason}, true
	}
	return ReviewIssue{}, false
}

// unresolvedMarkers returns the sorted, distinct marker values in brief that
// have no registry entry.
func unresolvedMarkers(brief string, reg *Registry) []int {
	seen := make(map[int]bool)
	var unresolved []int
	for _, m := range citationMarker.FindAllStringSubmatch(brief, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := reg.Resolve(n); !ok {
			unresolved = append(unresolved, n)
		}
	}
	sort.Ints(unresolved)
	return unresolved
}

// countWords counts whitespace-separated words, excluding citation markers so
// a heavily cited brief is not penalized for its references.
func countWords(brief string) int {
	stripped := citationMarker.ReplaceAllString(brief, " ")
	return len(strings.Fields(stripped))
}
