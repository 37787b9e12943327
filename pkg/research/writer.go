package research

import (
	"context"
	"fmt"
	"strings"
)

// noSourcesBrief is produced without a completion call when every search step
// came back empty; an honest caveat beats fabricated citations.
const noSourcesBrief = "No sources could be retrieved for this query, so no cited brief can be produced. " +
	"Try again later or with a different search provider."

// writeStage synthesizes the brief from the accumulated results. This is the
// one stage whose port failure is fatal: without a brief there is no usable
// output. On a revision pass the reviewer's objection is appended to the
// prompt; search is never re-queried.
func (o *Orchestrator) writeStage(ctx context.Context, st *State) (Update, error) {
	if st.Registry.Len() == 0 {
		o.Logger.Warn("no search results to synthesize")
		brief := noSourcesBrief
		return Update{Brief: &brief}, nil
	}

	prompt := buildWriterPrompt(st, o.cfg.MaxBriefWords)

	out, err := Retry(ctx, o.cfg.Retry, func(ctx context.Context) (string, error) {
		return o.completion.Complete(ctx, prompt, CompleteOptions{MaxTokens: o.cfg.MaxTokens})
	})
	if err != nil {
		return Update{}, fmt.Errorf("writer completion failed: %w", err)
	}

	brief := strings.TrimSpace(out)
	o.Logger.Info("brief drafted", "length", len(brief), "revision", st.Revisions)
	return Update{Brief: &brief}, nil
}

func buildWriterPrompt(st *State, maxWords int) string {
	var sources strings.Builder
	for i := range st.Plan {
		for _, r := range st.Results[i] {
			n, ok := st.Registry.IndexOf(r.URL)
			if !ok {
				continue
			}
			fmt.Fprintf(&sources, "[%d] %s\nURL: %s\nContent: %s\n\n", n, r.Title, r.URL, r.Snippet)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a research writer specializing in synthesizing information. Write a concise research brief (at most %d words) that answers the research question using the provided sources.

CRITICAL REQUIREMENTS:
1. Include inline citations [1][2][3] for ALL factual claims
2. Stay under %d words - be concise and focused
3. Answer the research question directly
4. Only cite sources that are actually provided below

Write ONLY the brief, no preamble or meta-commentary.

Research question: %s

Sources:
%s`, maxWords, maxWords, st.Query, sources.String())

	if st.Revisions > 0 && st.Review != nil {
		fmt.Fprintf(&b, "\nA previous draft was rejected by review. Correct these issues in the new brief: %s\n", st.Review)
	}
	return b.String()
}
