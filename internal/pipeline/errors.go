package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// FailureCause classifies a stage failure for retry decisions.
type FailureCause string

const (
	// CauseInputInvalid means upstream data was malformed or missing.
	// Retrying cannot fix bad input, so this cause is stage-fatal.
	CauseInputInvalid FailureCause = "input_invalid"
	// CauseCapabilityUnavailable means the backing model or service was
	// unreachable.
	CauseCapabilityUnavailable FailureCause = "capability_unavailable"
	// CauseCapabilityTimeout means the stage exceeded its allotted time.
	CauseCapabilityTimeout FailureCause = "capability_timeout"
	// CauseCapabilityError means the backing service returned an error or
	// degenerate output, such as empty text or unparseable JSON.
	CauseCapabilityError FailureCause = "capability_error"
)

// Retriable reports whether the coordinator may retry a failure with
// this cause.
func (c FailureCause) Retriable() bool {
	switch c {
	case CauseCapabilityUnavailable, CauseCapabilityTimeout, CauseCapabilityError:
		return true
	}
	return false
}

// StageFailure records why a stage, and with it the pipeline, failed.
// Agents return StageFailure values to signal a classified cause; the
// coordinator fills in Stage and Attempts when it records the failure.
type StageFailure struct {
	Stage    string       `json:"stage"`
	Cause    FailureCause `json:"cause"`
	Message  string       `json:"message"`
	Attempts int          `json:"attempts"`
	Err      error        `json:"-"`
}

func (e *StageFailure) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Cause, e.Message)
	}
	return fmt.Sprintf("stage %s: %s: %s", e.Stage, e.Cause, e.Message)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}

// InvalidInput builds a non-retriable failure for malformed upstream data.
func InvalidInput(message string) *StageFailure {
	return &StageFailure{Cause: CauseInputInvalid, Message: message}
}

// Unavailable builds a retriable failure for an unreachable capability.
func Unavailable(err error) *StageFailure {
	return &StageFailure{Cause: CauseCapabilityUnavailable, Message: err.Error(), Err: err}
}

// Timeout builds a retriable failure for an exceeded stage deadline.
func Timeout(err error) *StageFailure {
	return &StageFailure{Cause: CauseCapabilityTimeout, Message: err.Error(), Err: err}
}

// CapabilityFailed builds a retriable failure for a capability that
// responded with an error or unusable output.
func CapabilityFailed(err error) *StageFailure {
	return &StageFailure{Cause: CauseCapabilityError, Message: err.Error(), Err: err}
}

// ErrDocumentNotFound indicates the document id could not be resolved
type ErrDocumentNotFound struct {
	ID uuid.UUID
}

func (e *ErrDocumentNotFound) Error() string {
	return fmt.Sprintf("document not found: %s", e.ID)
}

// ErrPipelineNotFound indicates the pipeline id is not in the registry
type ErrPipelineNotFound struct {
	ID uuid.UUID
}

func (e *ErrPipelineNotFound) Error() string {
	return fmt.Sprintf("pipeline not found: %s", e.ID)
}

// ErrResultsNotReady indicates results were requested before completion
type ErrResultsNotReady struct {
	ID     uuid.UUID
	Status Status
}

func (e *ErrResultsNotReady) Error() string {
	return fmt.Sprintf("pipeline %s results not ready: status is %s", e.ID, e.Status)
}

// ErrPipelineNotTerminal indicates cleanup was requested while the
// pipeline is still pending or running
type ErrPipelineNotTerminal struct {
	ID     uuid.UUID
	Status Status
}

func (e *ErrPipelineNotTerminal) Error() string {
	return fmt.Sprintf("pipeline %s is not terminal: status is %s", e.ID, e.Status)
}
