package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Reconstructor rebuilds an executable task from a persisted row. Each task
// factory implements this for its own payload shape; the rebuilt task keeps
// the stored row's ID so status updates land on the original row.
type Reconstructor interface {
	// Reconstruct builds an executable task from the stored ID and payload.
	Reconstruct(id uuid.UUID, payload []byte) (Task, error)
}

// Registry maps task types to their reconstructors. The runner consults it
// during crash recovery to turn inert stored rows back into runnable work.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Reconstructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string]Reconstructor),
	}
}

// Register installs the reconstructor for a task type, replacing any
// previous registration.
func (r *Registry) Register(taskType string, rec Reconstructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[taskType] = rec
}

// Rebuild turns a stored task into an executable one. Tasks that are already
// executable pass through unchanged; a stored task with no registered
// reconstructor is an error.
func (r *Registry) Rebuild(t Task) (Task, error) {
	if _, ok := t.(*StoredTask); !ok {
		return t, nil
	}

	r.mu.RLock()
	rec, ok := r.byType[t.Type()]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no reconstructor registered for task type %q", t.Type())
	}

	return rec.Reconstruct(t.ID(), t.Payload())
}

// unmarshalPayload decodes a stored payload, rejecting empty data with a
// clearer error than the json package's.
func unmarshalPayload(data []byte, v interface{}) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(data, v)
}
