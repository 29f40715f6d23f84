package sandbox

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultCallbackCap bounds how many ask_llm calls one sandbox execution may
// make before the host refuses further nesting.
const DefaultCallbackCap = 50

// CallbackRegistry tracks live sandbox executions that are allowed to call
// back into the host's ask_llm endpoint. Each run gets an execution ID the
// sandbox must present; unknown or exhausted IDs are rejected so a runaway
// script cannot recurse forever or call on behalf of another run.
type CallbackRegistry struct {
	mu   sync.Mutex
	cap  int
	runs map[string]int
}

// NewCallbackRegistry creates a registry. callCap <= 0 uses DefaultCallbackCap.
func NewCallbackRegistry(callCap int) *CallbackRegistry {
	if callCap <= 0 {
		callCap = DefaultCallbackCap
	}
	return &CallbackRegistry{
		cap:  callCap,
		runs: make(map[string]int),
	}
}

// Register allocates an execution ID for a new sandbox run.
func (r *CallbackRegistry) Register() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.runs[id] = 0
	r.mu.Unlock()
	return id
}

// Acquire consumes one nested call from the run's budget.
func (r *CallbackRegistry) Acquire(executionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	count, ok := r.runs[executionID]
	if !ok {
		return fmt.Errorf("unknown execution id %q", executionID)
	}
	if count >= r.cap {
		return fmt.Errorf("nested call limit reached (%d)", r.cap)
	}
	r.runs[executionID] = count + 1
	return nil
}

// Calls returns how many nested calls the run has made so far.
func (r *CallbackRegistry) Calls(executionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[executionID]
}

// Release forgets a finished run and returns its nested call count.
func (r *CallbackRegistry) Release(executionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := r.runs[executionID]
	delete(r.runs, executionID)
	return count
}
