package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ context.Context = &Execution{}

// Execution is the state of a single flow run. It is passed to every task
// and doubles as the task's context.Context, so deadlines and cancellation
// set by the executor reach plugin HTTP calls.
type Execution struct {
	ID        string
	Store     ValueStore
	Flow      *Flow
	Container *Container
	ctx       context.Context
}

func (e *Execution) Deadline() (deadline time.Time, ok bool) {
	return e.ctx.Deadline()
}

func (e *Execution) Done() <-chan struct{} {
	return e.ctx.Done()
}

func (e *Execution) Err() error {
	return e.ctx.Err()
}

// Value resolves string keys against the execution store and everything
// else against the embedded context.
func (e *Execution) Value(key any) any {
	k, ok := key.(string)
	if !ok || e.Store == nil {
		return e.ctx.Value(key)
	}

	v, _ := e.Store.Get(k)
	return v
}

// WithContext returns a shallow copy of the Execution with a new embedded
// context. The store is shared with the original.
func (e *Execution) WithContext(ctx context.Context) *Execution {
	if ctx == nil {
		ctx = context.Background()
	}
	copy := *e
	copy.ctx = ctx
	return &copy
}

func (e *Execution) AddValue(k string, v any) {
	e.Store.Set(k, v)
}

// Values returns a snapshot of the execution state for expression evaluation.
func (e *Execution) Values() map[string]any {
	return e.Store.All()
}

// NewExecution creates an execution with global and flow properties
// resolved into properties.*. It fails if a property references a required
// environment variable that is not set.
func NewExecution(flow *Flow, container *Container, globalProperties map[string]any, store ValueStore) (*Execution, error) {
	exec := &Execution{
		ID:        uuid.New().String(),
		Store:     store,
		Flow:      flow,
		Container: container,
		ctx:       context.Background(),
	}

	// Global properties first, then flow properties (flow overrides)
	for k, v := range globalProperties {
		resolved, err := ResolveEnv(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", k, err)
		}
		exec.AddValue("properties."+k, resolved)
	}

	if flow != nil {
		for k, v := range flow.Properties {
			resolved, err := ResolveEnv(v)
			if err != nil {
				return nil, fmt.Errorf("flow %s property %s: %w", flow.ID, k, err)
			}
			exec.AddValue("properties."+k, resolved)
		}
	}

	return exec, nil
}
