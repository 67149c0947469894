// Package pipeline implements the coordinator that drives uploaded documents
// through the fixed sequence of test generation stages.
package pipeline

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a pipeline.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// StageResult is one committed stage output. Results are append-only:
// once committed they are never overwritten or removed.
type StageResult struct {
	Stage       string    `json:"stage"`
	Output      any       `json:"output"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// State is the mutable record for one pipeline run. It is owned by the
// coordinator task executing the run; all other access goes through
// read-only snapshots.
type State struct {
	PipelineID      uuid.UUID
	DocumentID      uuid.UUID
	Status          Status
	CurrentStage    string
	StageResults    []StageResult
	Error           *StageFailure
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CancelRequested bool
}

// NewState creates a pending pipeline state for a document.
func NewState(documentID uuid.UUID) *State {
	now := time.Now().UTC()
	return &State{
		PipelineID: uuid.New(),
		DocumentID: documentID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Snapshot is the read-only copy of a State handed to callers. Snapshots
// of a terminal pipeline are identical across calls.
type Snapshot struct {
	PipelineID      uuid.UUID     `json:"pipeline_id"`
	DocumentID      uuid.UUID     `json:"document_id"`
	Status          Status        `json:"status"`
	CurrentStage    string        `json:"current_stage,omitempty"`
	Progress        float64       `json:"progress"`
	StageResults    []StageResult `json:"stage_results"`
	Error           *StageFailure `json:"error,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	CancelRequested bool          `json:"cancel_requested"`
}

// Results bundles the committed outputs of a completed pipeline. Final is
// the finalization stage's output, duplicated out of StageResults for
// convenience.
type Results struct {
	PipelineID   uuid.UUID     `json:"pipeline_id"`
	DocumentID   uuid.UUID     `json:"document_id"`
	Status       Status        `json:"status"`
	StageResults []StageResult `json:"stage_results"`
	Final        any           `json:"final"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// snapshot deep-copies the caller-visible fields. Stage outputs are shared
// by reference; they are immutable once committed.
func (s *State) snapshot(total int) *Snapshot {
	results := make([]StageResult, len(s.StageResults))
	copy(results, s.StageResults)

	var failure *StageFailure
	if s.Error != nil {
		f := *s.Error
		failure = &f
	}

	return &Snapshot{
		PipelineID:      s.PipelineID,
		DocumentID:      s.DocumentID,
		Status:          s.Status,
		CurrentStage:    s.CurrentStage,
		Progress:        progressPercent(len(s.StageResults), total),
		StageResults:    results,
		Error:           failure,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		CancelRequested: s.CancelRequested,
	}
}

// progressPercent converts committed-stage count into a percentage with
// one decimal place.
func progressPercent(committed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(committed)/float64(total)*1000) / 10
}
