package plugin

import "github.com/BDNK1/sflowg-copicake/runtime"

// Input is the map-based form of task arguments.
type Input = map[string]any

// Output is the map-based form of task results. It is stored in the
// execution under "<step id>.result".
type Output = map[string]any

// TaskError lets a task classify its failure (transient or permanent)
// and attach metadata that ends up on the flow error.
type TaskError = runtime.TaskError

type ErrorType = runtime.FlowErrorType

const (
	ErrorTypeTransient = runtime.ErrorTypeTransient
	ErrorTypePermanent = runtime.ErrorTypePermanent
)

func NewTaskError(err error) *TaskError {
	return runtime.NewTaskError(err)
}
