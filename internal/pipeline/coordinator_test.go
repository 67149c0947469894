package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAgent implements Agent for coordinator tests
type stubAgent struct {
	name    string
	execute func(ctx context.Context, in StageInput) (any, error)
}

func (a *stubAgent) Name() string { return a.name }

func (a *stubAgent) Execute(ctx context.Context, in StageInput) (any, error) {
	if a.execute != nil {
		return a.execute(ctx, in)
	}
	return map[string]any{"stage": a.name}, nil
}

// resolverFunc adapts a function to DocumentResolver
type resolverFunc func(ctx context.Context, id uuid.UUID) (bool, error)

func (f resolverFunc) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return f(ctx, id)
}

var alwaysResolves = resolverFunc(func(context.Context, uuid.UUID) (bool, error) {
	return true, nil
})

// stageLog records the order stages executed in
type stageLog struct {
	mu     sync.Mutex
	stages []string
}

func (l *stageLog) append(stage string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stages = append(l.stages, stage)
}

func (l *stageLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.stages))
	copy(out, l.stages)
	return out
}

// testDescriptors returns the canonical descriptors with short timeouts
// so tests run quickly.
func testDescriptors(timeout time.Duration, maxRetries int) []AgentDescriptor {
	descriptors := DefaultDescriptors()
	for i := range descriptors {
		descriptors[i].Timeout = timeout
		descriptors[i].MaxRetries = maxRetries
	}
	return descriptors
}

// passthroughAgents builds one logging stub per canonical stage.
func passthroughAgents(log *stageLog) []Agent {
	agents := make([]Agent, 0, len(StageOrder()))
	for _, stage := range StageOrder() {
		stage := stage
		agents = append(agents, &stubAgent{
			name: stage,
			execute: func(_ context.Context, _ StageInput) (any, error) {
				if log != nil {
					log.append(stage)
				}
				return map[string]any{"stage": stage, "ok": true}, nil
			},
		})
	}
	return agents
}

func waitTerminal(t *testing.T, c *Coordinator, id uuid.UUID) *Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := c.WaitFor(ctx, id)
	require.NoError(t, err)
	return snap
}

func TestCoordinator_EndToEnd_CommitsAllStagesInOrder(t *testing.T) {
	log := &stageLog{}
	agents := passthroughAgents(log)

	// The extraction stub passes through a fixed structured payload.
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, in StageInput) (any, error) {
			log.append(StageExtraction)
			return map[string]any{
				"stage": StageExtraction,
				"text":  "Users must log in with email and password.",
			}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(time.Second, 2),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusCompleted, snap.Status)
	require.Nil(t, snap.Error)

	want := []string{"extraction", "understanding", "decomposition", "edge_case", "writer", "review", "finalization"}
	assert.Equal(t, want, log.snapshot())

	committed := make([]string, 0, len(snap.StageResults))
	for _, r := range snap.StageResults {
		committed = append(committed, r.Stage)
		assert.Equal(t, 1, r.Attempts)
	}
	assert.Equal(t, want, committed)
	assert.Equal(t, 100.0, snap.Progress)
	assert.Equal(t, StageFinalization, snap.CurrentStage)
}

func TestCoordinator_WriterTimeout_ExhaustsRetryBudget(t *testing.T) {
	var invocations atomic.Int32
	agents := passthroughAgents(nil)
	agents[4] = &stubAgent{
		name: StageWriter,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			invocations.Add(1)
			return nil, Timeout(context.DeadlineExceeded)
		},
	}

	descriptors := testDescriptors(time.Second, 2)
	c, err := NewCoordinator(alwaysResolves, agents, Options{Descriptors: descriptors})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "writer", snap.Error.Stage)
	assert.Equal(t, CauseCapabilityTimeout, snap.Error.Cause)
	assert.Equal(t, 3, snap.Error.Attempts)
	assert.Equal(t, int32(3), invocations.Load())

	// Exactly the stages strictly before the failing one are committed.
	committed := make([]string, 0, len(snap.StageResults))
	for _, r := range snap.StageResults {
		committed = append(committed, r.Stage)
	}
	assert.Equal(t, []string{"extraction", "understanding", "decomposition", "edge_case"}, committed)
}

func TestCoordinator_StageDeadline_TreatedAsTimeout(t *testing.T) {
	agents := passthroughAgents(nil)
	agents[1] = &stubAgent{
		name: StageUnderstanding,
		execute: func(ctx context.Context, _ StageInput) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	descriptors := testDescriptors(30*time.Millisecond, 1)
	c, err := NewCoordinator(alwaysResolves, agents, Options{Descriptors: descriptors})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, StageUnderstanding, snap.Error.Stage)
	assert.Equal(t, CauseCapabilityTimeout, snap.Error.Cause)
	assert.Equal(t, 2, snap.Error.Attempts)
}

func TestCoordinator_InputInvalid_NeverRetried(t *testing.T) {
	var invocations atomic.Int32
	agents := passthroughAgents(nil)
	agents[2] = &stubAgent{
		name: StageDecomposition,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			invocations.Add(1)
			return nil, InvalidInput("understanding output is missing the summary")
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(time.Second, 3),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, CauseInputInvalid, snap.Error.Cause)
	assert.Equal(t, StageDecomposition, snap.Error.Stage)
	assert.Equal(t, int32(1), invocations.Load(), "non-retriable failures get exactly one attempt")
}

func TestCoordinator_BoundaryValidation_FailsConsumingStage(t *testing.T) {
	var invoked atomic.Int32
	agents := passthroughAgents(nil)
	agents[1] = &stubAgent{
		name: StageUnderstanding,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			invoked.Add(1)
			return nil, errors.New("should never run")
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(time.Second, 2),
		Validator: stageValidatorFunc(func(stage string, output any) error {
			if stage == StageExtraction {
				return errors.New("text field is empty")
			}
			return nil
		}),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, CauseInputInvalid, snap.Error.Cause)
	assert.Equal(t, StageUnderstanding, snap.Error.Stage)
	assert.Equal(t, 0, snap.Error.Attempts, "the agent is never invoked on a boundary failure")
	assert.Equal(t, int32(0), invoked.Load())

	// The committed extraction result stays visible.
	require.Len(t, snap.StageResults, 1)
	assert.Equal(t, StageExtraction, snap.StageResults[0].Stage)
}

// stageValidatorFunc adapts a function to StageValidator
type stageValidatorFunc func(stage string, output any) error

func (f stageValidatorFunc) ValidateStageOutput(stage string, output any) error {
	return f(stage, output)
}

func TestCoordinator_Cancel_RetainsCommittedResults(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	agents := passthroughAgents(nil)
	agents[1] = &stubAgent{
		name: StageUnderstanding,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			close(entered)
			<-release
			return map[string]any{"stage": StageUnderstanding}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(5*time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	<-entered
	require.NoError(t, c.Cancel(id))

	// The in-flight stage runs to completion and commits before the
	// cancellation takes effect at the next boundary.
	close(release)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusCancelled, snap.Status)
	assert.Nil(t, snap.Error)
	assert.True(t, snap.CancelRequested)

	committed := make([]string, 0, len(snap.StageResults))
	for _, r := range snap.StageResults {
		committed = append(committed, r.Stage)
	}
	assert.Equal(t, []string{"extraction", "understanding"}, committed)

	// No further commits after cancellation.
	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		again, err := c.GetStatus(id)
		require.NoError(t, err)
		assert.Len(t, again.StageResults, len(snap.StageResults))
		assert.Equal(t, StatusCancelled, again.Status)
	}
}

func TestCoordinator_Cancel_TerminalIsNoOp(t *testing.T) {
	c, err := NewCoordinator(alwaysResolves, passthroughAgents(nil), Options{
		Descriptors: testDescriptors(time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusCompleted, snap.Status)

	require.NoError(t, c.Cancel(id))
	again, err := c.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.False(t, again.CancelRequested)
}

func TestCoordinator_TerminalSnapshots_ByteIdentical(t *testing.T) {
	c, err := NewCoordinator(alwaysResolves, passthroughAgents(nil), Options{
		Descriptors: testDescriptors(time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	waitTerminal(t, c, id)

	first, err := c.GetStatus(id)
	require.NoError(t, err)
	second, err := c.GetStatus(id)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCoordinator_Cleanup_RunningRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	agents := passthroughAgents(nil)
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			close(entered)
			<-release
			return map[string]any{"stage": StageExtraction}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(5*time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	<-entered

	err = c.Cleanup(id)
	var notTerminal *ErrPipelineNotTerminal
	require.ErrorAs(t, err, &notTerminal)
	assert.Equal(t, StatusRunning, notTerminal.Status)
}

func TestCoordinator_Cleanup_RemovesTerminalPipeline(t *testing.T) {
	c, err := NewCoordinator(alwaysResolves, passthroughAgents(nil), Options{
		Descriptors: testDescriptors(time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	waitTerminal(t, c, id)

	require.NoError(t, c.Cleanup(id))

	_, err = c.GetStatus(id)
	var notFound *ErrPipelineNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, id, notFound.ID)
}

func TestCoordinator_Start_UnknownDocument(t *testing.T) {
	never := resolverFunc(func(context.Context, uuid.UUID) (bool, error) {
		return false, nil
	})
	c, err := NewCoordinator(never, passthroughAgents(nil), Options{
		Descriptors: testDescriptors(time.Second, 0),
	})
	require.NoError(t, err)

	docID := uuid.New()
	_, err = c.Start(context.Background(), docID)
	var notFound *ErrDocumentNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, docID, notFound.ID)
}

func TestCoordinator_GetResults_NotReadyWhileRunning(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	agents := passthroughAgents(nil)
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			close(entered)
			<-release
			return map[string]any{"stage": StageExtraction}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(5*time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	<-entered

	_, err = c.GetResults(id)
	var notReady *ErrResultsNotReady
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, StatusRunning, notReady.Status)

	close(release)
	waitTerminal(t, c, id)

	results, err := c.GetResults(id)
	require.NoError(t, err)
	require.Len(t, results.StageResults, 7)
	assert.Equal(t, StatusCompleted, results.Status)
	assert.Equal(t, results.StageResults[6].Output, results.Final)
}

func TestCoordinator_ListActive_ExcludesTerminal(t *testing.T) {
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)

	agents := passthroughAgents(nil)
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			entered.Done()
			<-release
			return map[string]any{"stage": StageExtraction}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors:   testDescriptors(5*time.Second, 0),
		MaxConcurrent: 4,
	})
	require.NoError(t, err)

	first, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	second, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	entered.Wait()

	active := c.ListActive()
	assert.ElementsMatch(t, []uuid.UUID{first, second}, active)

	close(release)
	waitTerminal(t, c, first)
	waitTerminal(t, c, second)
	assert.Empty(t, c.ListActive())
}

func TestCoordinator_Subscribe_DeliversTerminalEvent(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	agents := passthroughAgents(nil)
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			close(entered)
			<-release
			return map[string]any{"stage": StageExtraction}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(5*time.Second, 0),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	<-entered

	events, releaseSub, err := c.Subscribe(id)
	require.NoError(t, err)
	defer releaseSub()

	close(release)

	var last ProgressEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, EventPipelineCompleted, last.Event)
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, 100.0, last.Progress)

	// Subscribing to an already-terminal pipeline yields one event and a
	// closed channel.
	late, releaseLate, err := c.Subscribe(id)
	require.NoError(t, err)
	defer releaseLate()
	ev, open := <-late
	require.True(t, open)
	assert.Equal(t, EventPipelineCompleted, ev.Event)
	_, open = <-late
	assert.False(t, open)
}

func TestCoordinator_StartAfterClose_RecordedAsFailed(t *testing.T) {
	c, err := NewCoordinator(alwaysResolves, passthroughAgents(nil), Options{
		Descriptors: testDescriptors(time.Second, 0),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Close(ctx))

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap, err := c.GetStatus(id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, CauseCapabilityUnavailable, snap.Error.Cause)
	assert.Equal(t, StageExtraction, snap.Error.Stage)
	assert.Empty(t, snap.StageResults)
}

func TestCoordinator_AgentPanic_BecomesFailedState(t *testing.T) {
	agents := passthroughAgents(nil)
	agents[3] = &stubAgent{
		name: StageEdgeCase,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			panic("boundary slice index out of range")
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors: testDescriptors(time.Second, 2),
	})
	require.NoError(t, err)

	id, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	snap := waitTerminal(t, c, id)
	require.Equal(t, StatusFailed, snap.Status)
	require.NotNil(t, snap.Error)
	assert.Equal(t, StageEdgeCase, snap.Error.Stage)
	assert.Equal(t, CauseCapabilityError, snap.Error.Cause)
	assert.Contains(t, snap.Error.Message, "panicked")
}

func TestCoordinator_MaxConcurrent_QueuesAdmission(t *testing.T) {
	release := make(chan struct{})
	var running atomic.Int32
	var peak atomic.Int32

	agents := passthroughAgents(nil)
	agents[0] = &stubAgent{
		name: StageExtraction,
		execute: func(_ context.Context, _ StageInput) (any, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			return map[string]any{"stage": StageExtraction}, nil
		},
	}

	c, err := NewCoordinator(alwaysResolves, agents, Options{
		Descriptors:   testDescriptors(5*time.Second, 0),
		MaxConcurrent: 1,
	})
	require.NoError(t, err)

	first, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)
	second, err := c.Start(context.Background(), uuid.New())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	close(release)

	waitTerminal(t, c, first)
	waitTerminal(t, c, second)
	assert.Equal(t, int32(1), peak.Load(), "admission must respect the concurrency bound")
}

func TestClassifyFailure(t *testing.T) {
	t.Run("deadline becomes timeout", func(t *testing.T) {
		f := classifyFailure("writer", context.DeadlineExceeded)
		assert.Equal(t, CauseCapabilityTimeout, f.Cause)
		assert.Equal(t, "writer", f.Stage)
	})

	t.Run("stage failure passes through", func(t *testing.T) {
		original := InvalidInput("missing field")
		f := classifyFailure("review", original)
		assert.Same(t, original, f)
		assert.Equal(t, "review", f.Stage)
	})

	t.Run("unknown errors are capability errors", func(t *testing.T) {
		f := classifyFailure("understanding", errors.New("connection reset"))
		assert.Equal(t, CauseCapabilityError, f.Cause)
		assert.True(t, f.Cause.Retriable())
	})

	t.Run("wrapped stage failure unwraps", func(t *testing.T) {
		inner := Unavailable(errors.New("dial tcp: connection refused"))
		f := classifyFailure("extraction", inner)
		assert.Equal(t, CauseCapabilityUnavailable, f.Cause)
	})
}
