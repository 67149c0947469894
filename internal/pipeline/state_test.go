package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestNewState_StartsPending(t *testing.T) {
	docID := uuid.New()
	s := NewState(docID)

	assert.NotEqual(t, uuid.Nil, s.PipelineID)
	assert.Equal(t, docID, s.DocumentID)
	assert.Equal(t, StatusPending, s.Status)
	assert.Empty(t, s.CurrentStage)
	assert.Empty(t, s.StageResults)
	assert.Nil(t, s.Error)
	assert.False(t, s.CancelRequested)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
}

func TestSnapshot_CopiesResultsAndError(t *testing.T) {
	s := NewState(uuid.New())
	s.StageResults = append(s.StageResults, StageResult{Stage: StageExtraction, Attempts: 1})
	s.Error = &StageFailure{Stage: StageWriter, Cause: CauseCapabilityTimeout, Attempts: 3}

	snap := s.snapshot(7)
	require.Len(t, snap.StageResults, 1)

	// Mutating the snapshot must not touch the live state.
	snap.StageResults[0].Stage = "mutated"
	snap.Error.Stage = "mutated"
	assert.Equal(t, StageExtraction, s.StageResults[0].Stage)
	assert.Equal(t, StageWriter, s.Error.Stage)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0.0, progressPercent(0, 7))
	assert.Equal(t, 14.3, progressPercent(1, 7))
	assert.Equal(t, 57.1, progressPercent(4, 7))
	assert.Equal(t, 100.0, progressPercent(7, 7))
	assert.Equal(t, 0.0, progressPercent(3, 0))
}
