package research

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func quantumSearch() *fakeSearch {
	responses := make(map[string][]SearchResult)
	steps := []string{"current cryptographic standards", "quantum algorithms breaking RSA", "post-quantum cryptography"}
	n := 0
	for _, step := range steps {
		var res []SearchResult
		for i := 0; i < 5; i++ {
			n++
			res = append(res, result(fmt.Sprintf("Source %d", n), fmt.Sprintf("https://e.com/%d", n)))
		}
		responses[step] = res
	}
	return &fakeSearch{responses: responses}
}

func TestRunEndToEnd(t *testing.T) {
	completion := &scriptedCompletion{script: []completionStep{
		{out: `["current cryptographic standards", "quantum algorithms breaking RSA", "post-quantum cryptography"]`},
		{out: "Quantum computers threaten RSA [1][2]. Post-quantum schemes are being standardized [6][11]."},
	}}
	o := newTestOrchestrator(completion, quantumSearch(), Config{})

	var transitions []Stage
	o.OnTransition = func(stage Stage, st State) {
		transitions = append(transitions, stage)
	}

	res, err := o.Run(context.Background(), "impact of quantum computing on cryptography")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Status != StatusDone {
		t.Errorf("status = %q, want done", res.Status)
	}
	if res.Revisions != 0 {
		t.Errorf("revisions = %d, want 0", res.Revisions)
	}
	if res.Verdict != VerdictPass {
		t.Errorf("verdict = %q, want pass", res.Verdict)
	}
	if len(res.Plan) != 3 {
		t.Errorf("plan steps = %d, want 3", len(res.Plan))
	}
	if len(res.References) != 15 {
		t.Errorf("references = %d, want 15", len(res.References))
	}
	for i, ref := range res.References {
		if ref.Index != i+1 {
			t.Fatalf("references not dense at position %d: %+v", i, ref)
		}
	}

	want := []Stage{StageResearching, StageWriting, StageReviewing, StageDone}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestRunReviseThenPass(t *testing.T) {
	completion := &scriptedCompletion{script: []completionStep{
		{out: `["step one", "step two"]`},
		{out: "A claim with a dangling citation [99]."},
		{out: "A corrected claim [1]."},
	}}
	search := &fakeSearch{responses: map[string][]SearchResult{
		"step one": {result("r1", "https://e.com/1")},
		"step two": {result("r2", "https://e.com/2")},
	}}
	o := newTestOrchestrator(completion, search, Config{})

	res, err := o.Run(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusDone || res.Verdict != VerdictPass {
		t.Errorf("got (%q, %q), want (done, pass)", res.Status, res.Verdict)
	}
	if res.Revisions != 1 {
		t.Errorf("revisions = %d, want 1", res.Revisions)
	}
	if res.Brief != "A corrected claim [1]." {
		t.Errorf("final brief is not the revised one: %q", res.Brief)
	}
	// No dangling citations after revision
	if got := unresolvedMarkers(res.Brief, registryFromRefs(res.References)); len(got) != 0 {
		t.Errorf("revised brief has dangling markers: %v", got)
	}
}

func TestRunReviseTwiceStillTerminates(t *testing.T) {
	completion := &scriptedCompletion{script: []completionStep{
		{out: `["step one", "step two"]`},
		{out: "Bad first draft [42]."},
		{out: "Bad second draft [43]."},
	}}
	search := &fakeSearch{responses: map[string][]SearchResult{
		"step one": {result("r1", "https://e.com/1")},
		"step two": {result("r2", "https://e.com/2")},
	}}
	o := newTestOrchestrator(completion, search, Config{})

	res, err := o.Run(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Run must terminate with the best-available brief: %v", err)
	}
	if res.Status != StatusDone {
		t.Errorf("status = %q, want done", res.Status)
	}
	if res.Revisions != 1 {
		t.Errorf("revisions = %d, want exactly 1", res.Revisions)
	}
	if res.Brief != "Bad second draft [43]." {
		t.Errorf("final brief should be the last produced: %q", res.Brief)
	}
	if res.Verdict != VerdictRevise {
		t.Errorf("verdict = %q, want revise (bound reached)", res.Verdict)
	}
}

func TestRunWriterFailureIsFatal(t *testing.T) {
	llmDown := Transient(errors.New("provider outage"))
	completion := &scriptedCompletion{script: []completionStep{
		{out: `["step one", "step two"]`},
		{err: llmDown}, {err: llmDown}, {err: llmDown},
	}}
	search := &fakeSearch{responses: map[string][]SearchResult{
		"step one": {result("r1", "https://e.com/1")},
		"step two": {result("r2", "https://e.com/2")},
	}}
	o := newTestOrchestrator(completion, search, Config{})

	res, err := o.Run(context.Background(), "test query")
	if err == nil {
		t.Fatal("expected an error for a failed run")
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %q, want failed", res.Status)
	}
	if res.FailedStage != StageWriting {
		t.Errorf("failed stage = %q, want writing", res.FailedStage)
	}
	if !errors.Is(err, llmDown) {
		t.Errorf("error should carry the underlying cause: %v", err)
	}
}

func TestRunPartialSearchFailureReachesDone(t *testing.T) {
	completion := &scriptedCompletion{script: []completionStep{
		{out: `["good step", "bad step"]`},
		{out: "Partial findings [1]."},
	}}
	search := &fakeSearch{
		responses: map[string][]SearchResult{
			"good step": {result("r1", "https://e.com/1")},
		},
		errs: map[string]error{
			"bad step": Transient(errors.New("backend down")),
		},
	}
	o := newTestOrchestrator(completion, search, Config{})

	res, err := o.Run(context.Background(), "test query")
	if err != nil {
		t.Fatalf("partial search failure must not fail the run: %v", err)
	}
	if res.Status != StatusDone {
		t.Errorf("status = %q, want done", res.Status)
	}
	if len(res.References) != 1 {
		t.Errorf("references = %d, want 1 from the successful step", len(res.References))
	}
}

func TestRunPlannerCompletionFailureFallsBackToQuery(t *testing.T) {
	llmDown := Transient(errors.New("provider outage"))
	completion := &scriptedCompletion{script: []completionStep{
		{err: llmDown}, {err: llmDown}, {err: llmDown},
		{out: "Direct findings [1]."},
	}}
	search := &fakeSearch{responses: map[string][]SearchResult{
		"test query": {result("r1", "https://e.com/1")},
	}}
	o := newTestOrchestrator(completion, search, Config{})

	res, err := o.Run(context.Background(), "test query")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Plan) != 1 || res.Plan[0].Text != "test query" {
		t.Errorf("plan = %v, want fallback to the raw query", res.Plan)
	}
	if res.Status != StatusDone {
		t.Errorf("status = %q, want done", res.Status)
	}
}

func TestRunEmptyQueryFails(t *testing.T) {
	o := newTestOrchestrator(nil, nil, Config{})

	res, err := o.Run(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if !errors.Is(err, ErrEmptyPlan) {
		t.Errorf("err = %v, want ErrEmptyPlan", err)
	}
	if res.Status != StatusFailed || res.FailedStage != StagePlanning {
		t.Errorf("got (%q, %q), want (failed, planning)", res.Status, res.FailedStage)
	}
}

func TestRunCancelledContextFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(&scriptedCompletion{}, &fakeSearch{}, Config{})
	res, err := o.Run(ctx, "test query")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %q, want failed", res.Status)
	}
}

func TestReviewTransition(t *testing.T) {
	tests := []struct {
		name      string
		verdict   Verdict
		revisions int
		want      Stage
	}{
		{"pass terminates", VerdictPass, 0, StageDone},
		{"revise within bound loops", VerdictRevise, 0, StageWriting},
		{"revise at bound terminates", VerdictRevise, 1, StageDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState("q")
			st.Verdict = tt.verdict
			st.Revisions = tt.revisions
			if got := reviewTransition(st); got != tt.want {
				t.Errorf("reviewTransition = %q, want %q", got, tt.want)
			}
		})
	}
}

func registryFromRefs(refs []Reference) *Registry {
	r := NewRegistry()
	for _, ref := range refs {
		r.Assign(ref.URL)
	}
	return r
}
