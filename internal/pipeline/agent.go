package pipeline

import (
	"context"

	"github.com/google/uuid"
)

// StageInput carries the upstream outputs projected for one stage
// invocation. Inputs holds exactly the stages named by the descriptor's
// input fields; an agent never sees undeclared upstream data.
type StageInput struct {
	PipelineID uuid.UUID
	DocumentID uuid.UUID
	Inputs     map[string]any
}

// Input returns the committed output of an upstream stage, or nil when
// the stage was not declared as an input field.
func (in StageInput) Input(stage string) any {
	return in.Inputs[stage]
}

// Agent is one named, stateless processing stage. Execute must be
// idempotent for identical input: the coordinator retries failed calls
// with the same StageInput. Agents classify their failures by returning
// a *StageFailure; any other error is treated as a capability error.
// Agents never retry internally and never mutate pipeline state.
type Agent interface {
	Name() string
	Execute(ctx context.Context, in StageInput) (any, error)
}

// StageValidator checks a committed stage output before it is handed to
// a downstream stage. A validation failure surfaces as InputInvalid on
// the consuming stage.
type StageValidator interface {
	ValidateStageOutput(stage string, output any) error
}

// DocumentResolver answers whether a document id is backed by a stored
// document.
type DocumentResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Recorder mirrors pipeline progress to durable storage. Every call is
// best-effort: the coordinator ignores recorder errors and the in-memory
// registry stays canonical.
type Recorder interface {
	RecordRun(ctx context.Context, snap *Snapshot) error
	RecordCheckpoint(ctx context.Context, pipelineID uuid.UUID, position int, result StageResult) error
}
