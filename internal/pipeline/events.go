package pipeline

import (
	"github.com/google/uuid"
)

// Progress event kinds.
const (
	EventStageStarted      = "stage_started"
	EventStageCompleted    = "stage_completed"
	EventPipelineCompleted = "pipeline_completed"
	EventPipelineFailed    = "pipeline_failed"
	EventPipelineCancelled = "pipeline_cancelled"
)

// ProgressEvent reports a stage transition during pipeline execution.
type ProgressEvent struct {
	PipelineID uuid.UUID `json:"pipeline_id"`
	Event      string    `json:"event"`
	Stage      string    `json:"stage,omitempty"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	Message    string    `json:"message,omitempty"`
}

// ProgressCallback is called for every progress event across all
// pipelines. Callbacks must be fast; they run on the pipeline's own
// goroutine.
type ProgressCallback func(event ProgressEvent)

// subscribe registers a buffered event channel on the entry. The second
// return value unregisters it. A subscriber to an already-terminal
// pipeline receives one terminal event and an immediately closed channel.
func (e *entry) subscribe(total int) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 32)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status.Terminal() {
		ch <- terminalEvent(e.state, total)
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
}

// emitLocked delivers an event to all subscribers without blocking; a
// subscriber that cannot keep up loses events. Caller holds e.mu.
func (e *entry) emitLocked(ev ProgressEvent) {
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// closeSubsLocked closes and forgets every subscriber channel after the
// terminal event has been delivered. Caller holds e.mu.
func (e *entry) closeSubsLocked() {
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// terminalEvent builds the event describing an already-terminal state.
func terminalEvent(s *State, total int) ProgressEvent {
	ev := ProgressEvent{
		PipelineID: s.PipelineID,
		Status:     s.Status,
		Progress:   progressPercent(len(s.StageResults), total),
	}
	switch s.Status {
	case StatusCompleted:
		ev.Event = EventPipelineCompleted
		ev.Message = "pipeline completed"
	case StatusFailed:
		ev.Event = EventPipelineFailed
		if s.Error != nil {
			ev.Stage = s.Error.Stage
			ev.Message = s.Error.Error()
		}
	case StatusCancelled:
		ev.Event = EventPipelineCancelled
		ev.Message = "pipeline cancelled"
	}
	return ev
}
