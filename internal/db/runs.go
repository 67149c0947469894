package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertPipelineRun writes a pipeline's current state, inserting on first
// write and updating on every one after.
func (db *DB) UpsertPipelineRun(ctx context.Context, run *PipelineRun) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs
		   (id, document_id, status, current_stage, progress, error, cancel_requested, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   status = $3, current_stage = $4, progress = $5, error = $6,
		   cancel_requested = $7, updated_at = $9`,
		run.ID, run.DocumentID, run.Status, run.CurrentStage, run.Progress,
		run.Error, run.CancelRequested, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pipeline run: %w", err)
	}
	return nil
}

// GetPipelineRun retrieves a run by pipeline ID. Returns nil when not found.
func (db *DB) GetPipelineRun(ctx context.Context, id uuid.UUID) (*PipelineRun, error) {
	var run PipelineRun
	var currentStage *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, document_id, status, current_stage, progress, error, cancel_requested, created_at, updated_at
		 FROM pipeline_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.DocumentID, &run.Status, &currentStage, &run.Progress,
		&run.Error, &run.CancelRequested, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	if currentStage != nil {
		run.CurrentStage = *currentStage
	}
	return &run, nil
}

// RunFilters holds optional filters for listing pipeline runs
type RunFilters struct {
	DocumentID uuid.UUID
	Status     string
	Limit      int
}

// ListPipelineRuns retrieves runs with optional filters, newest first
func (db *DB) ListPipelineRuns(ctx context.Context, filters RunFilters) ([]PipelineRun, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, document_id, status, current_stage, progress, error, cancel_requested, created_at, updated_at
		FROM pipeline_runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.DocumentID != uuid.Nil {
		query += fmt.Sprintf(" AND document_id = $%d", argNum)
		args = append(args, filters.DocumentID)
		argNum++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	defer rows.Close()

	var runs []PipelineRun
	for rows.Next() {
		var run PipelineRun
		var currentStage *string
		if err := rows.Scan(&run.ID, &run.DocumentID, &run.Status, &currentStage, &run.Progress,
			&run.Error, &run.CancelRequested, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline run: %w", err)
		}
		if currentStage != nil {
			run.CurrentStage = *currentStage
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// SaveCheckpoint stores one committed stage result for a pipeline
func (db *DB) SaveCheckpoint(ctx context.Context, cp *PipelineCheckpoint) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_checkpoints (pipeline_id, position, stage, output, attempts, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (pipeline_id, position) DO UPDATE SET
		   stage = $3, output = $4, attempts = $5, completed_at = $6`,
		cp.PipelineID, cp.Position, cp.Stage, cp.Output, cp.Attempts, cp.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.Stage, err)
	}
	return nil
}

// ListCheckpoints retrieves a pipeline's committed stage results in order
func (db *DB) ListCheckpoints(ctx context.Context, pipelineID uuid.UUID) ([]PipelineCheckpoint, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT pipeline_id, position, stage, output, attempts, completed_at
		 FROM pipeline_checkpoints WHERE pipeline_id = $1 ORDER BY position ASC`,
		pipelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []PipelineCheckpoint
	for rows.Next() {
		var cp PipelineCheckpoint
		if err := rows.Scan(&cp.PipelineID, &cp.Position, &cp.Stage, &cp.Output,
			&cp.Attempts, &cp.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, nil
}

// SaveTestArtifact stores a completed pipeline's final test set
func (db *DB) SaveTestArtifact(ctx context.Context, artifact *TestArtifact) error {
	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO test_artifacts (id, pipeline_id, document_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		artifact.ID, artifact.PipelineID, artifact.DocumentID, artifact.Content,
	).Scan(&artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save test artifact: %w", err)
	}
	return nil
}

// GetTestArtifactByPipeline retrieves the most recent artifact for a pipeline.
// Returns nil when the pipeline has produced none.
func (db *DB) GetTestArtifactByPipeline(ctx context.Context, pipelineID uuid.UUID) (*TestArtifact, error) {
	var artifact TestArtifact
	err := db.pool.QueryRow(ctx,
		`SELECT id, pipeline_id, document_id, content, created_at
		 FROM test_artifacts WHERE pipeline_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		pipelineID,
	).Scan(&artifact.ID, &artifact.PipelineID, &artifact.DocumentID,
		&artifact.Content, &artifact.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test artifact: %w", err)
	}
	return &artifact, nil
}

// ListTestArtifacts retrieves artifacts for a document, newest first
func (db *DB) ListTestArtifacts(ctx context.Context, documentID uuid.UUID) ([]TestArtifact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, pipeline_id, document_id, content, created_at
		 FROM test_artifacts WHERE document_id = $1 ORDER BY created_at DESC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list test artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []TestArtifact
	for rows.Next() {
		var artifact TestArtifact
		if err := rows.Scan(&artifact.ID, &artifact.PipelineID, &artifact.DocumentID,
			&artifact.Content, &artifact.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}
