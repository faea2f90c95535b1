package runtime

// TaskError wraps task execution errors with metadata.
// Plugins use it to classify failures (type: transient, permanent) and to
// attach details such as the remote status code.
type TaskError struct {
	Err      error
	Metadata map[string]any
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "task completed with metadata"
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

func NewTaskError(err error) *TaskError {
	return &TaskError{
		Err:      err,
		Metadata: make(map[string]any),
	}
}

func (e *TaskError) WithMetadata(key string, value any) *TaskError {
	e.Metadata[key] = value
	return e
}

// WithType sets the error type (e.g., "transient", "permanent")
func (e *TaskError) WithType(errorType FlowErrorType) *TaskError {
	e.Metadata["type"] = string(errorType)
	return e
}

func (e *TaskError) GetType() FlowErrorType {
	if val, ok := e.Metadata["type"].(string); ok {
		return FlowErrorType(val)
	}
	return ""
}

func (e *TaskError) IsRetryable() bool {
	return e.GetType() == ErrorTypeTransient
}
