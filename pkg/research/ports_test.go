package research

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeSearch serves canned results per query, with optional per-query errors
// and artificial latency to simulate completion-order jitter.
type fakeSearch struct {
	mu        sync.Mutex
	responses map[string][]SearchResult
	errs      map[string]error
	delays    map[string]time.Duration
	calls     map[string]int
}

func (f *fakeSearch) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[query]++
	delay := f.delays[query]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	res := f.responses[query]
	if len(res) > count {
		res = res[:count]
	}
	return res, nil
}

// scriptedCompletion returns its scripted outputs in call order.
type scriptedCompletion struct {
	mu     sync.Mutex
	calls  int
	script []completionStep
}

type completionStep struct {
	out string
	err error
}

func (s *scriptedCompletion) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.script) {
		return "", errors.New("unexpected completion call")
	}
	step := s.script[s.calls]
	s.calls++
	return step.out, step.err
}

// lastPrompt-recording completion for prompt-content assertions.
type recordingCompletion struct {
	scriptedCompletion
	prompts []string
}

func (r *recordingCompletion) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()
	return r.scriptedCompletion.Complete(ctx, prompt, opts)
}

func newTestOrchestrator(completion CompletionPort, search SearchPort, cfg Config) *Orchestrator {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = testPolicy
	}
	o := New(completion, search, cfg)
	o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return o
}

func result(title, url string) SearchResult {
	return SearchResult{Title: title, URL: url, Snippet: "snippet for " + title}
}
