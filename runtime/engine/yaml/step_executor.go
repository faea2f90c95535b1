package yaml

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BDNK1/sflowg-copicake/runtime"
	"golang.org/x/sync/errgroup"
)

// StepExecutor dispatches step execution based on the step's Type field.
// "assign" is built in; every other type is looked up in the container's
// task registry.
type StepExecutor struct {
	evaluator runtime.ExpressionEvaluator
	l         *slog.Logger
}

func NewStepExecutor(evaluator runtime.ExpressionEvaluator, l *slog.Logger) *StepExecutor {
	return &StepExecutor{
		evaluator: evaluator,
		l:         l,
	}
}

func (e *StepExecutor) ExecuteStep(ctx context.Context, execution *runtime.Execution, step runtime.Step) error {
	switch step.Type {
	case runtime.StepTypeAssign:
		return e.handleAssign(execution, step)
	default:
		return e.handleTask(ctx, execution, step)
	}
}

// handleAssign stores each evaluated arg as {stepID}.{key}
func (e *StepExecutor) handleAssign(execution *runtime.Execution, step runtime.Step) error {
	args, err := runtime.EvaluateArgs(e.evaluator, execution.Values(), step.Args)
	if err != nil {
		return err
	}
	for k, v := range args {
		execution.AddValue(fmt.Sprintf("%s.%s", step.ID, k), v)
	}
	return nil
}

// handleTask runs the step's task and stores the output as {stepID}.result.
// With for_each the result is a list in input order, one entry per item.
func (e *StepExecutor) handleTask(ctx context.Context, execution *runtime.Execution, step runtime.Step) error {
	task := execution.Container.GetTask(step.Type)
	if task == nil {
		return fmt.Errorf("%w: %s", runtime.ErrTaskNotFound, step.Type)
	}

	scoped := execution.WithContext(ctx)

	if step.ForEach == "" {
		out, err := e.runTask(scoped, task, step, execution.Values())
		if err != nil {
			if !step.ContinueOnFail {
				return err
			}
			e.l.WarnContext(scoped, fmt.Sprintf("Step %s failed, continuing", step.ID), "error", err)
			out = errorRecord(err)
		}
		execution.AddValue(step.ID+".result", out)
		return nil
	}

	items, err := e.evaluateItems(execution, step)
	if err != nil {
		return err
	}

	results, err := e.runItems(ctx, scoped, task, step, items)
	if err != nil {
		return err
	}
	execution.AddValue(step.ID+".result", results)
	return nil
}

// runItems executes the task once per item. Items run one at a time unless
// step.Parallel > 1; each item's own task call is never split. The first
// failing item aborts the step unless continue_on_fail is set.
func (e *StepExecutor) runItems(ctx context.Context, scoped *runtime.Execution, task runtime.Task, step runtime.Step, items []any) ([]any, error) {
	results := make([]any, len(items))
	base := scoped.Values()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(step.Parallel, 1))

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			values := make(map[string]any, len(base)+2)
			for k, v := range base {
				values[k] = v
			}
			values["item"] = item
			values["index"] = i

			out, err := e.runTask(scoped.WithContext(gctx), task, step, values)
			if err != nil {
				if !step.ContinueOnFail {
					return &runtime.ItemError{Index: i, Err: err}
				}
				e.l.WarnContext(gctx, fmt.Sprintf("Step %s item %d failed, continuing", step.ID, i), "error", err)
				results[i] = errorRecord(err)
				return nil
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *StepExecutor) runTask(exec *runtime.Execution, task runtime.Task, step runtime.Step, values map[string]any) (map[string]any, error) {
	args, err := runtime.EvaluateArgs(e.evaluator, values, step.Args)
	if err != nil {
		return nil, err
	}
	return task.Execute(exec, args)
}

func (e *StepExecutor) evaluateItems(execution *runtime.Execution, step runtime.Step) ([]any, error) {
	v, err := e.evaluator.Eval(step.ForEach, execution.Values())
	if err != nil {
		return nil, fmt.Errorf("error evaluating for_each %s: %w", step.ForEach, err)
	}
	switch items := v.(type) {
	case []any:
		return items, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("for_each %s evaluated to %T, expected list", step.ForEach, v)
	}
}

// errorRecord is the result stored for a failed item when the step
// continues on failure.
func errorRecord(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}
