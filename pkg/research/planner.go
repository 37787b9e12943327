package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const maxPlanSteps = 5

// planStage decomposes the query into 2-5 focused research steps. The LLM is
// asked for a JSON array; unparseable output degrades to line extraction, and
// a completion failure degrades to the raw query as a single step, so the
// plan is only ever empty for an empty query.
func (o *Orchestrator) planStage(ctx context.Context, st *State) (Update, error) {
	prompt := buildPlannerPrompt(st.Query)

	content, err := Retry(ctx, o.cfg.Retry, func(ctx context.Context) (string, error) {
		return o.completion.Complete(ctx, prompt, CompleteOptions{MaxTokens: o.cfg.MaxTokens})
	})
	if err != nil {
		if ctx.Err() != nil {
			return Update{}, ctx.Err()
		}
		o.Logger.Warn("planner completion failed, using direct query", "error", err)
		return Update{Plan: []Step{{Text: st.Query}}}, nil
	}

	plan := parsePlan(content)
	if len(plan) == 0 {
		plan = []Step{{Text: st.Query}}
	}

	o.Logger.Info("research plan created", "steps", len(plan))
	return Update{Plan: plan}, nil
}

func buildPlannerPrompt(query string) string {
	return fmt.Sprintf(`You are a research planner. Given a research query, decompose it into 2-5 focused, actionable research steps that will help answer the question. Each step should be a specific aspect to investigate.

Return ONLY a JSON array of strings, nothing else. No explanations.
Example: ["Step 1 description", "Step 2 description", "Step 3 description"]

Research query: %s

Generate 2-5 research steps as a JSON array:`, query)
}

// parsePlan extracts plan steps from LLM output. Strict JSON first, then a
// line-based fallback stripping common list prefixes.
func parsePlan(content string) []Step {
	content = stripCodeFence(content)

	var items []string
	if err := json.Unmarshal([]byte(content), &items); err == nil {
		if len(items) > maxPlanSteps {
			items = items[:maxPlanSteps]
		}
		if steps := toSteps(items); len(steps) >= 2 {
			return steps
		}
		return nil
	}

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" || line == "[" || line == "]" {
			continue
		}
		lines = append(lines, strings.Trim(line, `",`))
		if len(lines) == maxPlanSteps {
			break
		}
	}
	return toSteps(lines)
}

func toSteps(items []string) []Step {
	var steps []Step
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			steps = append(steps, Step{Text: it})
		}
	}
	return steps
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
