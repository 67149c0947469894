package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry pairs one pipeline's state with its control handle. The entry
// mutex guards the state and the subscriber set; the run goroutine and
// caller-facing operations both take it, but never across an agent call.
type entry struct {
	mu      sync.Mutex
	state   *State
	cancel  context.CancelFunc
	done    chan struct{}
	subs    map[int]chan ProgressEvent
	nextSub int
}

// Registry maps pipeline ids to their live entries. It is constructed
// once and passed by reference; the mutex guards only the map itself,
// never any per-pipeline work.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

// NewRegistry creates an empty pipeline registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entry)}
}

func (r *Registry) add(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.state.PipelineID] = e
}

func (r *Registry) get(id uuid.UUID) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of registered pipelines, terminal or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// activeIDs returns ids of pending and running pipelines, oldest first.
func (r *Registry) activeIDs() []uuid.UUID {
	r.mu.RLock()
	type active struct {
		id      uuid.UUID
		created time.Time
	}
	found := make([]active, 0, len(r.entries))
	for id, e := range r.entries {
		e.mu.Lock()
		if !e.state.Status.Terminal() {
			found = append(found, active{id: id, created: e.state.CreatedAt})
		}
		e.mu.Unlock()
	}
	r.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool {
		if found[i].created.Equal(found[j].created) {
			return found[i].id.String() < found[j].id.String()
		}
		return found[i].created.Before(found[j].created)
	})
	ids := make([]uuid.UUID, len(found))
	for i, a := range found {
		ids[i] = a.id
	}
	return ids
}
