package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Executor orchestrates flow step execution.
// It handles the step loop, condition evaluation and step deadlines,
// delegating actual step execution to a StepExecutor.
type Executor struct {
	l            *slog.Logger
	evaluator    ExpressionEvaluator
	stepExecutor StepExecutor
}

func NewExecutor(l *slog.Logger, evaluator ExpressionEvaluator, stepExecutor StepExecutor) *Executor {
	return &Executor{
		l:            l,
		evaluator:    evaluator,
		stepExecutor: stepExecutor,
	}
}

// Run executes all steps and evaluates the flow's return arguments.
func (e *Executor) Run(execution *Execution) (map[string]any, error) {
	if err := e.ExecuteSteps(execution); err != nil {
		return nil, err
	}

	result, err := EvaluateArgs(e.evaluator, execution.Values(), execution.Flow.Return.Args)
	if err != nil {
		return nil, NewFlowError("return", err)
	}
	return result, nil
}

// ExecuteSteps runs the flow's steps in order. A failing step stops the
// flow with a *FlowError.
func (e *Executor) ExecuteSteps(execution *Execution) error {
	for _, s := range execution.Flow.Steps {
		if err := execution.Err(); err != nil {
			return NewFlowError(s.ID, err)
		}

		run, err := e.evaluateCondition(execution, s)
		if err != nil {
			return NewFlowError(s.ID, err)
		}
		if !run {
			e.l.InfoContext(execution, fmt.Sprintf("Skipping step: %s", s.ID), "condition", s.Condition)
			continue
		}

		started := time.Now()
		if err := e.executeStep(execution, s); err != nil {
			fe := NewFlowError(s.ID, err)
			e.l.ErrorContext(execution, fmt.Sprintf("Step failed: %s", s.ID),
				"type", fe.Type,
				"code", fe.Code,
				"error", err)
			return fe
		}
		e.l.InfoContext(execution, fmt.Sprintf("Step completed: %s", s.ID),
			"task", s.Type,
			"duration", time.Since(started))
	}

	return nil
}

func (e *Executor) executeStep(execution *Execution, step Step) error {
	var ctx context.Context = execution
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(execution, time.Duration(step.Timeout)*time.Second)
		defer cancel()
	}
	return e.stepExecutor.ExecuteStep(ctx, execution, step)
}

func (e *Executor) evaluateCondition(execution *Execution, step Step) (bool, error) {
	if step.Condition == "" {
		return true, nil
	}

	result, err := e.evaluator.Eval(step.Condition, execution.Values())
	if err != nil {
		e.l.ErrorContext(execution, fmt.Sprintf("Error evaluating condition for step %s", step.ID),
			"condition", step.Condition,
			"error", err)
		return false, fmt.Errorf("error evaluating condition %s: %w", step.Condition, err)
	}

	resultBool, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %s evaluated to %T, expected boolean", step.Condition, result)
	}
	return resultBool, nil
}
