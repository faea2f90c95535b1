package runtime

import (
	"context"
	"errors"
	"fmt"
)

// FlowErrorType classifies error severity and retry behavior.
type FlowErrorType string

const (
	ErrorTypeTransient FlowErrorType = "transient"
	ErrorTypePermanent FlowErrorType = "permanent"
	ErrorTypeTimeout   FlowErrorType = "timeout"
)

type FlowErrorCode string

const (
	ErrorCodeRuntimeError     FlowErrorCode = "RUNTIME_ERROR"
	ErrorCodeTaskNotFound     FlowErrorCode = "TASK_NOT_FOUND"
	ErrorCodeContextCancelled FlowErrorCode = "CONTEXT_CANCELLED"
	ErrorCodeDeadlineExceeded FlowErrorCode = "DEADLINE_EXCEEDED"
)

// ErrTaskNotFound is returned when a step references an unregistered task.
var ErrTaskNotFound = errors.New("task not found")

// FlowError is the canonical error returned by a flow execution.
// It is JSON-serializable so the HTTP entrypoint can return it as is.
type FlowError struct {
	Type    FlowErrorType  `json:"type"`
	Code    FlowErrorCode  `json:"code"`
	Message string         `json:"message"`
	Step    string         `json:"step"`
	Item    *int           `json:"item,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	cause   error
}

func (e *FlowError) Error() string {
	if e.Item != nil {
		return fmt.Sprintf("[%s/%s] %s (step: %s, item: %d)", e.Type, e.Code, e.Message, e.Step, *e.Item)
	}
	return fmt.Sprintf("[%s/%s] %s (step: %s)", e.Type, e.Code, e.Message, e.Step)
}

func (e *FlowError) Unwrap() error {
	return e.cause
}

// ItemError marks a failure of one element of a for_each step.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// NewFlowError classifies err as the failure of step.
func NewFlowError(step string, err error) *FlowError {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe
	}

	fe = &FlowError{
		Type:    ErrorTypePermanent,
		Code:    ErrorCodeRuntimeError,
		Message: err.Error(),
		Step:    step,
		cause:   err,
	}

	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		idx := itemErr.Index
		fe.Item = &idx
	}

	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		if t := taskErr.GetType(); t != "" {
			fe.Type = t
		}
		if len(taskErr.Metadata) > 0 {
			fe.Meta = taskErr.Metadata
		}
	}

	switch {
	case errors.Is(err, ErrTaskNotFound):
		fe.Code = ErrorCodeTaskNotFound
	case errors.Is(err, context.DeadlineExceeded):
		fe.Type = ErrorTypeTimeout
		fe.Code = ErrorCodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		fe.Code = ErrorCodeContextCancelled
	}

	return fe
}
