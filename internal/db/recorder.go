package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/test-writer/internal/pipeline"
)

// Recorder mirrors coordinator state into Postgres. It implements
// pipeline.Recorder; the coordinator treats every call as best-effort,
// so failures here never affect a running pipeline.
type Recorder struct {
	db *DB
}

// NewRecorder creates a Recorder backed by the given database
func NewRecorder(db *DB) *Recorder {
	return &Recorder{db: db}
}

// RecordRun upserts the run row for a snapshot. When the snapshot is the
// completed terminal state, the finalization output is also saved as a
// test artifact so it survives registry cleanup.
func (r *Recorder) RecordRun(ctx context.Context, snap *pipeline.Snapshot) error {
	var errJSON json.RawMessage
	if snap.Error != nil {
		data, err := json.Marshal(snap.Error)
		if err != nil {
			return fmt.Errorf("failed to marshal pipeline error: %w", err)
		}
		errJSON = data
	}

	run := &PipelineRun{
		ID:              snap.PipelineID,
		DocumentID:      snap.DocumentID,
		Status:          string(snap.Status),
		CurrentStage:    snap.CurrentStage,
		Progress:        snap.Progress,
		Error:           errJSON,
		CancelRequested: snap.CancelRequested,
		CreatedAt:       snap.CreatedAt,
		UpdatedAt:       snap.UpdatedAt,
	}
	if err := r.db.UpsertPipelineRun(ctx, run); err != nil {
		return err
	}

	if snap.Status == pipeline.StatusCompleted && len(snap.StageResults) > 0 {
		final := snap.StageResults[len(snap.StageResults)-1]
		content, err := json.Marshal(final.Output)
		if err != nil {
			return fmt.Errorf("failed to marshal final test set: %w", err)
		}
		artifact := &TestArtifact{
			PipelineID: snap.PipelineID,
			DocumentID: snap.DocumentID,
			Content:    content,
		}
		if err := r.db.SaveTestArtifact(ctx, artifact); err != nil {
			return err
		}
	}
	return nil
}

// RecordCheckpoint upserts one committed stage result
func (r *Recorder) RecordCheckpoint(ctx context.Context, pipelineID uuid.UUID, position int, result pipeline.StageResult) error {
	output, err := json.Marshal(result.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal stage output: %w", err)
	}
	cp := &PipelineCheckpoint{
		PipelineID:  pipelineID,
		Position:    position,
		Stage:       result.Stage,
		Output:      output,
		Attempts:    result.Attempts,
		CompletedAt: result.CompletedAt,
	}
	return r.db.SaveCheckpoint(ctx, cp)
}
