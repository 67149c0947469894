package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const recordTimeout = 5 * time.Second

// Options configures a Coordinator.
type Options struct {
	Descriptors   []AgentDescriptor // stage set; defaults to DefaultDescriptors()
	MaxConcurrent int64             // simultaneously executing pipelines; defaults to 4
	Validator     StageValidator    // optional boundary check on upstream outputs
	Recorder      Recorder          // optional best-effort persistence
	OnProgress    ProgressCallback  // optional global progress callback
}

// Coordinator owns the pipeline registry and drives each registered
// pipeline through the stage sequence. Many pipelines execute
// concurrently; stages within one pipeline are strictly sequential.
type Coordinator struct {
	registry    *Registry
	descriptors []AgentDescriptor
	agents      map[string]Agent
	resolver    DocumentResolver
	validator   StageValidator
	recorder    Recorder
	onProgress  ProgressCallback
	sem         *semaphore.Weighted

	baseCtx  context.Context
	baseStop context.CancelFunc
	wg       sync.WaitGroup
}

// NewCoordinator wires a coordinator from its collaborators. Every
// configured stage must have a registered agent.
func NewCoordinator(resolver DocumentResolver, agents []Agent, opts Options) (*Coordinator, error) {
	if resolver == nil {
		return nil, fmt.Errorf("document resolver is required")
	}
	descriptors := opts.Descriptors
	if descriptors == nil {
		descriptors = DefaultDescriptors()
	}
	if err := ValidateDescriptors(descriptors); err != nil {
		return nil, err
	}

	byName := make(map[string]Agent, len(agents))
	for _, a := range agents {
		if _, dup := byName[a.Name()]; dup {
			return nil, fmt.Errorf("duplicate agent registered for stage %s", a.Name())
		}
		byName[a.Name()] = a
	}
	for _, d := range descriptors {
		if _, ok := byName[d.Name]; !ok {
			return nil, fmt.Errorf("no agent registered for stage %s", d.Name)
		}
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Coordinator{
		registry:    NewRegistry(),
		descriptors: descriptors,
		agents:      byName,
		resolver:    resolver,
		validator:   opts.Validator,
		recorder:    opts.Recorder,
		onProgress:  opts.OnProgress,
		sem:         semaphore.NewWeighted(maxConcurrent),
		baseCtx:     ctx,
		baseStop:    stop,
	}, nil
}

// Descriptors returns a copy of the configured stage descriptors in
// execution order.
func (c *Coordinator) Descriptors() []AgentDescriptor {
	out := make([]AgentDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Start validates that the document resolves, registers a new pending
// pipeline, and schedules its execution. It returns immediately; stage
// work happens on the pipeline's own goroutine. A failure to even
// schedule the run is recorded as a failed pipeline, never dropped.
func (c *Coordinator) Start(ctx context.Context, documentID uuid.UUID) (uuid.UUID, error) {
	ok, err := c.resolver.Exists(ctx, documentID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolving document %s: %w", documentID, err)
	}
	if !ok {
		return uuid.Nil, &ErrDocumentNotFound{ID: documentID}
	}

	runCtx, cancel := context.WithCancel(c.baseCtx)
	e := &entry{
		state:  NewState(documentID),
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[int]chan ProgressEvent),
	}
	c.registry.add(e)

	e.mu.Lock()
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()
	c.record(snap)

	if c.baseCtx.Err() != nil {
		c.failScheduling(e)
		cancel()
		close(e.done)
		return e.state.PipelineID, nil
	}

	c.wg.Add(1)
	go c.run(runCtx, e)
	return e.state.PipelineID, nil
}

// GetStatus returns a read-only snapshot of the pipeline's state.
func (c *Coordinator) GetStatus(id uuid.UUID) (*Snapshot, error) {
	e, ok := c.registry.get(id)
	if !ok {
		return nil, &ErrPipelineNotFound{ID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.snapshot(len(c.descriptors)), nil
}

// GetResults returns the committed stage outputs of a completed
// pipeline.
func (c *Coordinator) GetResults(id uuid.UUID) (*Results, error) {
	e, ok := c.registry.get(id)
	if !ok {
		return nil, &ErrPipelineNotFound{ID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Status != StatusCompleted {
		return nil, &ErrResultsNotReady{ID: id, Status: e.state.Status}
	}
	results := make([]StageResult, len(e.state.StageResults))
	copy(results, e.state.StageResults)
	return &Results{
		PipelineID:   e.state.PipelineID,
		DocumentID:   e.state.DocumentID,
		Status:       e.state.Status,
		StageResults: results,
		Final:        results[len(results)-1].Output,
		CompletedAt:  e.state.UpdatedAt,
	}, nil
}

// Cancel requests cooperative cancellation. It is idempotent and a
// no-op on terminal pipelines. The flag is observed at the next stage
// boundary; an in-flight stage call runs to completion or to its own
// timeout.
func (c *Coordinator) Cancel(id uuid.UUID) error {
	e, ok := c.registry.get(id)
	if !ok {
		return &ErrPipelineNotFound{ID: id}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Status.Terminal() {
		return nil
	}
	e.state.CancelRequested = true
	return nil
}

// Cleanup removes a terminal pipeline from the registry. Removing a
// live pipeline would orphan its only state reference, so non-terminal
// pipelines are rejected.
func (c *Coordinator) Cleanup(id uuid.UUID) error {
	e, ok := c.registry.get(id)
	if !ok {
		return &ErrPipelineNotFound{ID: id}
	}
	e.mu.Lock()
	status := e.state.Status
	e.mu.Unlock()
	if !status.Terminal() {
		return &ErrPipelineNotTerminal{ID: id, Status: status}
	}
	c.registry.remove(id)
	return nil
}

// ListActive returns the ids of pending and running pipelines, oldest
// first.
func (c *Coordinator) ListActive() []uuid.UUID {
	return c.registry.activeIDs()
}

// Subscribe returns a channel of progress events for one pipeline and a
// function releasing the subscription. Subscribers that fall behind lose
// events; the channel is closed once the pipeline is terminal.
func (c *Coordinator) Subscribe(id uuid.UUID) (<-chan ProgressEvent, func(), error) {
	e, ok := c.registry.get(id)
	if !ok {
		return nil, nil, &ErrPipelineNotFound{ID: id}
	}
	ch, release := e.subscribe(len(c.descriptors))
	return ch, release, nil
}

// WaitFor blocks until the pipeline reaches a terminal status or the
// context expires, and returns the final snapshot.
func (c *Coordinator) WaitFor(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	e, ok := c.registry.get(id)
	if !ok {
		return nil, &ErrPipelineNotFound{ID: id}
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.snapshot(len(c.descriptors)), nil
}

// Close stops admitting new pipelines, interrupts in-flight stage calls,
// and waits for run goroutines to drain or ctx to expire.
func (c *Coordinator) Close(ctx context.Context) error {
	c.baseStop()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes the stage sequence for one pipeline. Failures become
// state; nothing escapes to crash the scheduler.
func (c *Coordinator) run(ctx context.Context, e *entry) {
	defer c.wg.Done()
	defer close(e.done)
	defer e.cancel()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline %s: recovered from stage panic: %v", e.state.PipelineID, r)
			c.failPanic(e, r)
		}
	}()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.failScheduling(e)
		return
	}
	defer c.sem.Release(1)

	c.setRunning(e)

	for _, d := range c.descriptors {
		if ctx.Err() != nil || e.cancelRequested() {
			c.markCancelled(e)
			return
		}

		in, inputErr := c.projectInput(e, d)
		if inputErr != nil {
			c.markFailed(e, d.Name, inputErr)
			return
		}

		c.startStage(e, d)

		out, attempts, failure := c.executeStage(ctx, d, in)
		if failure != nil {
			if ctx.Err() != nil && errors.Is(failure.Err, context.Canceled) {
				c.markCancelled(e)
				return
			}
			c.markFailed(e, d.Name, failure)
			return
		}
		c.commitStage(e, d, out, attempts)
	}

	c.markCompleted(e)
}

// executeStage invokes the agent under the descriptor's timeout,
// retrying retriable failures until the budget is spent. Total attempts
// never exceed MaxRetries+1.
func (c *Coordinator) executeStage(ctx context.Context, d AgentDescriptor, in StageInput) (any, int, *StageFailure) {
	agent := c.agents[d.Name]
	attempts := 0
	var last *StageFailure

	for attempt := 0; attempt <= d.MaxRetries; attempt++ {
		attempts++
		out, err := func() (any, error) {
			stageCtx, cancel := context.WithTimeout(ctx, d.Timeout)
			defer cancel()
			return agent.Execute(stageCtx, in)
		}()

		if err == nil {
			return out, attempts, nil
		}

		failure := classifyFailure(d.Name, err)
		failure.Attempts = attempts
		if !failure.Cause.Retriable() {
			return nil, attempts, failure
		}
		last = failure
		if ctx.Err() != nil {
			break
		}
		if attempt < d.MaxRetries {
			log.Printf("pipeline %s stage %s attempt %d/%d failed, retrying: %v",
				in.PipelineID, d.Name, attempts, d.MaxRetries+1, err)
		}
	}
	return nil, attempts, last
}

// classifyFailure maps an agent error onto the failure taxonomy. Agents
// that return a *StageFailure keep their own classification.
func classifyFailure(stage string, err error) *StageFailure {
	var sf *StageFailure
	if errors.As(err, &sf) {
		if sf.Stage == "" {
			sf.Stage = stage
		}
		return sf
	}

	var f *StageFailure
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		f = Timeout(err)
	case errors.Is(err, context.Canceled):
		f = Unavailable(err)
	default:
		f = CapabilityFailed(err)
	}
	f.Stage = stage
	return f
}

// projectInput assembles the StageInput for a descriptor from committed
// results, validating each upstream output at the boundary. A missing or
// invalid upstream result is InputInvalid for the consuming stage.
func (c *Coordinator) projectInput(e *entry, d AgentDescriptor) (StageInput, *StageFailure) {
	e.mu.Lock()
	committed := make(map[string]any, len(e.state.StageResults))
	for _, r := range e.state.StageResults {
		committed[r.Stage] = r.Output
	}
	in := StageInput{
		PipelineID: e.state.PipelineID,
		DocumentID: e.state.DocumentID,
		Inputs:     make(map[string]any, len(d.InputFields)),
	}
	e.mu.Unlock()

	for _, field := range d.InputFields {
		out, ok := committed[field]
		if !ok {
			sf := InvalidInput(fmt.Sprintf("stage %s requires the %s output, which is not committed", d.Name, field))
			sf.Stage = d.Name
			return StageInput{}, sf
		}
		if c.validator != nil {
			if err := c.validator.ValidateStageOutput(field, out); err != nil {
				sf := InvalidInput(fmt.Sprintf("upstream %s output is invalid: %v", field, err))
				sf.Stage = d.Name
				sf.Err = err
				return StageInput{}, sf
			}
		}
		in.Inputs[field] = out
	}
	return in, nil
}

func (e *entry) cancelRequested() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CancelRequested
}

// setRunning moves a pending pipeline into execution.
func (c *Coordinator) setRunning(e *entry) {
	e.mu.Lock()
	e.state.Status = StatusRunning
	e.state.UpdatedAt = time.Now().UTC()
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()
	c.record(snap)
}

// startStage marks a stage as the one currently executing.
func (c *Coordinator) startStage(e *entry, d AgentDescriptor) {
	e.mu.Lock()
	e.state.CurrentStage = d.Name
	e.state.UpdatedAt = time.Now().UTC()
	ev := ProgressEvent{
		PipelineID: e.state.PipelineID,
		Event:      EventStageStarted,
		Stage:      d.Name,
		Status:     StatusRunning,
		Progress:   progressPercent(len(e.state.StageResults), len(c.descriptors)),
		Message:    d.DisplayName + " started",
	}
	e.emitLocked(ev)
	e.mu.Unlock()
	c.notify(ev)
}

// commitStage appends a stage result. Committed results are never
// overwritten.
func (c *Coordinator) commitStage(e *entry, d AgentDescriptor, out any, attempts int) {
	now := time.Now().UTC()
	result := StageResult{Stage: d.Name, Output: out, Attempts: attempts, CompletedAt: now}

	e.mu.Lock()
	e.state.StageResults = append(e.state.StageResults, result)
	e.state.CurrentStage = d.Name
	e.state.UpdatedAt = now
	position := len(e.state.StageResults) - 1
	ev := ProgressEvent{
		PipelineID: e.state.PipelineID,
		Event:      EventStageCompleted,
		Stage:      d.Name,
		Status:     StatusRunning,
		Progress:   progressPercent(len(e.state.StageResults), len(c.descriptors)),
		Message:    d.DisplayName + " completed",
	}
	e.emitLocked(ev)
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()

	c.notify(ev)
	c.recordCheckpoint(e.state.PipelineID, position, result)
	c.record(snap)
}

// markCompleted finalizes a pipeline whose stages all committed.
func (c *Coordinator) markCompleted(e *entry) {
	e.mu.Lock()
	if e.state.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state.Status = StatusCompleted
	e.state.UpdatedAt = time.Now().UTC()
	ev := ProgressEvent{
		PipelineID: e.state.PipelineID,
		Event:      EventPipelineCompleted,
		Status:     StatusCompleted,
		Progress:   progressPercent(len(e.state.StageResults), len(c.descriptors)),
		Message:    "pipeline completed",
	}
	e.emitLocked(ev)
	e.closeSubsLocked()
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()

	c.notify(ev)
	c.record(snap)
	log.Printf("pipeline %s completed", e.state.PipelineID)
}

// markFailed records a stage failure as the pipeline's terminal state.
func (c *Coordinator) markFailed(e *entry, stage string, failure *StageFailure) {
	failure.Stage = stage

	e.mu.Lock()
	if e.state.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state.Status = StatusFailed
	e.state.CurrentStage = stage
	e.state.Error = failure
	e.state.UpdatedAt = time.Now().UTC()
	ev := ProgressEvent{
		PipelineID: e.state.PipelineID,
		Event:      EventPipelineFailed,
		Stage:      stage,
		Status:     StatusFailed,
		Progress:   progressPercent(len(e.state.StageResults), len(c.descriptors)),
		Message:    failure.Error(),
	}
	e.emitLocked(ev)
	e.closeSubsLocked()
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()

	c.notify(ev)
	c.record(snap)
	log.Printf("pipeline %s failed at stage %s after %d attempts: %s",
		e.state.PipelineID, stage, failure.Attempts, failure.Message)
}

// markCancelled honors a cancellation request at a stage boundary.
// Committed results are retained for inspection.
func (c *Coordinator) markCancelled(e *entry) {
	e.mu.Lock()
	if e.state.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state.Status = StatusCancelled
	e.state.UpdatedAt = time.Now().UTC()
	ev := ProgressEvent{
		PipelineID: e.state.PipelineID,
		Event:      EventPipelineCancelled,
		Status:     StatusCancelled,
		Progress:   progressPercent(len(e.state.StageResults), len(c.descriptors)),
		Message:    "pipeline cancelled",
	}
	e.emitLocked(ev)
	e.closeSubsLocked()
	snap := e.state.snapshot(len(c.descriptors))
	e.mu.Unlock()

	c.notify(ev)
	c.record(snap)
	log.Printf("pipeline %s cancelled", e.state.PipelineID)
}

// failScheduling records that the run could not be scheduled at all.
func (c *Coordinator) failScheduling(e *entry) {
	failure := &StageFailure{
		Cause:   CauseCapabilityUnavailable,
		Message: "coordinator is not accepting pipelines",
	}
	c.markFailed(e, c.descriptors[0].Name, failure)
}

// failPanic converts a recovered stage panic into a recorded failure.
func (c *Coordinator) failPanic(e *entry, recovered any) {
	e.mu.Lock()
	stage := e.state.CurrentStage
	e.mu.Unlock()
	if stage == "" {
		stage = c.descriptors[0].Name
	}
	failure := &StageFailure{
		Cause:    CauseCapabilityError,
		Message:  fmt.Sprintf("stage panicked: %v", recovered),
		Attempts: 1,
	}
	c.markFailed(e, stage, failure)
}

func (c *Coordinator) notify(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}

// record mirrors a snapshot to the recorder. Recorder failures never
// affect the run.
func (c *Coordinator) record(snap *Snapshot) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	_ = c.recorder.RecordRun(ctx, snap)
}

func (c *Coordinator) recordCheckpoint(id uuid.UUID, position int, result StageResult) {
	if c.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	_ = c.recorder.RecordCheckpoint(ctx, id, position, result)
}
