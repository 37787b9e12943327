package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/research-brief/pkg/clients"
	"github.com/mikeboe/research-brief/pkg/config"
	"github.com/mikeboe/research-brief/pkg/database"
	"github.com/mikeboe/research-brief/pkg/research"
	"github.com/mikeboe/research-brief/pkg/search"
)

type Service struct {
	DB  *database.PostgresDB
	Cfg *config.Config
}

func NewService(db *database.PostgresDB, cfg *config.Config) *Service {
	return &Service{
		DB:  db,
		Cfg: cfg,
	}
}

type Run struct {
	ID        uuid.UUID       `json:"id"`
	Query     string          `json:"query"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateRunRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

func (s *Service) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	numResults := req.NumResults
	if numResults < 1 || numResults > 8 {
		numResults = s.Cfg.NumResults
	}

	configJSON, _ := json.Marshal(map[string]interface{}{
		"llm_provider":    s.Cfg.LLMProvider,
		"model_name":      s.Cfg.ModelName,
		"search_provider": s.Cfg.SearchProvider,
		"num_results":     numResults,
	})

	runID := uuid.New()
	query := `
		INSERT INTO research_runs (id, query, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, query, status, created_at, updated_at
	`

	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, runID, req.Query, configJSON).Scan(
		&run.ID, &run.Query, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// Start background worker
	go s.runWorker(run.ID, req.Query, numResults)

	return run, nil
}

func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT id, query, status, result, error, created_at, updated_at, config
		FROM research_runs
		WHERE id = $1
	`
	run := &Run{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Query, &run.Status, &run.Result, &run.Error, &run.CreatedAt, &run.UpdatedAt, &run.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
		SELECT id, query, status, result, error, created_at, updated_at, config
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Query, &run.Status, &run.Result, &run.Error, &run.CreatedAt, &run.UpdatedAt, &run.Config); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

type Checkpoint struct {
	ID        int             `json:"id"`
	Stage     string          `json:"stage"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Service) GetRunCheckpoints(ctx context.Context, runID uuid.UUID) ([]Checkpoint, error) {
	query := `
		SELECT id, stage, state, created_at
		FROM research_checkpoints
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []Checkpoint
	for rows.Next() {
		var c Checkpoint
		if err := rows.Scan(&c.ID, &c.Stage, &c.State, &c.CreatedAt); err != nil {
			continue
		}
		checkpoints = append(checkpoints, c)
	}
	return checkpoints, nil
}

func (s *Service) runWorker(runID uuid.UUID, query string, numResults int) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'running', updated_at = NOW() WHERE id = $1", runID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))

	completion, err := clients.NewCompletion(ctx, s.Cfg.LLMProvider, s.Cfg.ModelName)
	if err != nil {
		s.failRun(ctx, runID, fmt.Sprintf("Failed to init LLM provider: %v", err))
		return
	}

	searchPort, err := search.New(s.Cfg.SearchProvider)
	if err != nil {
		s.failRun(ctx, runID, fmt.Sprintf("Failed to init search provider: %v", err))
		return
	}

	cfg := research.DefaultConfig()
	cfg.NumResults = numResults
	cfg.MaxConcurrentSearches = s.Cfg.MaxConcurrentSearches
	cfg.SemanticReview = s.Cfg.SemanticReview

	orch := research.New(completion, searchPort, cfg)
	orch.Logger = dbLogger

	// Persist a full state snapshot after every stage transition.
	orch.OnTransition = func(stage research.Stage, st research.State) {
		stateJSON, err := json.Marshal(st)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"INSERT INTO research_checkpoints (run_id, stage, state) VALUES ($1, $2, $3)",
			runID, string(stage), stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save checkpoint", "stage", stage, "error", err)
		}
	}

	result, runErr := orch.Run(ctx, query)

	resultJSON, err := json.Marshal(result)
	if err != nil {
		dbLogger.Error("Failed to marshal result", "error", err)
		resultJSON = []byte("{}")
	}

	if runErr != nil {
		_, _ = s.DB.Pool.Exec(ctx,
			"UPDATE research_runs SET status = 'failed', result = $2, error = $3, updated_at = NOW() WHERE id = $1",
			runID, resultJSON, runErr.Error())
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_runs SET status = 'done', result = $2, updated_at = NOW() WHERE id = $1",
		runID, resultJSON)
	if err != nil {
		dbLogger.Error("Failed to save result to DB", "error", err)
	}
}

func (s *Service) failRun(ctx context.Context, runID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, runID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_runs SET status = 'failed', error = $2, updated_at = NOW() WHERE id = $1", runID, reason)
}
