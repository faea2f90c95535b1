package runtime

import "context"

// Initializer allows plugins to perform startup initialization.
// Config and dependencies are already set on the plugin struct when
// Initialize is called.
type Initializer interface {
	Initialize(exec *Execution) error
}

// Shutdowner allows plugins to release resources during graceful shutdown.
type Shutdowner interface {
	Shutdown(exec *Execution) error
}

// FlowLoader loads flow definitions from files.
type FlowLoader interface {
	Extensions() []string
	Load(filePath string) (Flow, error)
}

// ExpressionEvaluator evaluates an expression against a variable namespace.
type ExpressionEvaluator interface {
	Eval(expression string, values map[string]any) (any, error)
}

// ValueStore manages execution state storage and retrieval.
// Dotted keys address nested values: Set("fetch.result", v) is readable
// as fetch.result in expressions.
type ValueStore interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	All() map[string]any
}

// StepExecutor executes a single flow step.
// ctx carries the step-scoped deadline; execution carries the flow state.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, execution *Execution, step Step) error
}
