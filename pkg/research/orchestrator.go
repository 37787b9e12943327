package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Stage identifies a node of the pipeline state machine.
type Stage string

const (
	StagePlanning    Stage = "planning"
	StageResearching Stage = "researching"
	StageWriting     Stage = "writing"
	StageReviewing   Stage = "reviewing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// maxRevisions bounds the review->write back-edge. A second revise verdict
// after the bound terminates at done with the best available brief.
const maxRevisions = 1

var ErrEmptyPlan = errors.New("planner produced no research steps")

// Orchestrator drives one research run: Planning -> Researching -> Writing ->
// Reviewing, with at most one conditional revision back to Writing. It owns
// the Research State for the duration of the run; stages contribute partial
// updates which the orchestrator merges.
type Orchestrator struct {
	completion CompletionPort
	search     SearchPort
	cfg        Config

	Logger *slog.Logger
	// OnTransition receives a snapshot of the state after every stage
	// transition. Callers use it for checkpointing; nil by default.
	OnTransition func(stage Stage, st State)
}

func New(completion CompletionPort, search SearchPort, cfg Config) *Orchestrator {
	return &Orchestrator{
		completion: completion,
		search:     search,
		cfg:        cfg.withDefaults(),
		Logger:     slog.Default(),
	}
}

// reviewTransition is the single conditional edge of the state machine:
// reviewing moves back to writing only while the verdict is revise and the
// revision bound has not been reached.
func reviewTransition(st *State) Stage {
	if st.Verdict == VerdictRevise && st.Revisions < maxRevisions {
		return StageWriting
	}
	return StageDone
}

// Run executes the full pipeline for query and returns the terminal result.
// The returned error is non-nil exactly when Status is failed, and names the
// stage that failed.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	st := NewState(query)

	if query == "" {
		return o.fail(st, StagePlanning, ErrEmptyPlan)
	}

	o.Logger.Info("starting research run", "query", query)

	stage := StagePlanning
	for stage != StageDone && stage != StageFailed {
		// Cancellation is checked between stages; mid-stage cancellation
		// surfaces through the stage's own context handling.
		if err := ctx.Err(); err != nil {
			return o.fail(st, stage, err)
		}

		var (
			upd  Update
			err  error
			next Stage
		)
		switch stage {
		case StagePlanning:
			upd, err = o.planStage(ctx, st)
			next = StageResearching
		case StageResearching:
			upd, err = o.researchStage(ctx, st)
			next = StageWriting
		case StageWriting:
			upd, err = o.writeStage(ctx, st)
			next = StageReviewing
		case StageReviewing:
			upd, err = o.reviewStage(ctx, st)
		}
		if err != nil {
			return o.fail(st, stage, err)
		}
		st.apply(upd)

		if stage == StagePlanning && len(st.Plan) == 0 {
			return o.fail(st, stage, ErrEmptyPlan)
		}
		if stage == StageReviewing {
			next = reviewTransition(st)
			if next == StageWriting {
				st.Revisions++
				o.Logger.Info("revision requested", "revisions", st.Revisions)
			}
		}

		stage = next
		o.notify(stage, st)
	}

	o.Logger.Info("research run complete", "references", st.Registry.Len(), "revisions", st.Revisions)
	return o.result(st, StatusDone, ""), nil
}

func (o *Orchestrator) fail(st *State, stage Stage, cause error) (*Result, error) {
	o.Logger.Error("research run failed", "stage", stage, "error", cause)
	o.notify(StageFailed, st)
	return o.result(st, StatusFailed, stage), fmt.Errorf("%s stage: %w", stage, cause)
}

func (o *Orchestrator) notify(stage Stage, st *State) {
	if o.OnTransition != nil {
		o.OnTransition(stage, *st)
	}
}

func (o *Orchestrator) result(st *State, status Status, failedAt Stage) *Result {
	return &Result{
		Plan:          st.Plan,
		SearchResults: st.Results,
		Brief:         st.Brief,
		References:    st.Registry.References(),
		Status:        status,
		Verdict:       st.Verdict,
		Revisions:     st.Revisions,
		FailedStage:   failedAt,
	}
}
