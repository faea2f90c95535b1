package runtime

import (
	"fmt"
	"reflect"
)

// Task is a named unit of work a flow step invokes. Inputs and outputs are
// the step's evaluated args and its stored result.
type Task interface {
	Execute(*Execution, map[string]any) (map[string]any, error)
}

// TaskFunc lets a plain function serve as a Task.
type TaskFunc func(*Execution, map[string]any) (map[string]any, error)

func (f TaskFunc) Execute(exec *Execution, args map[string]any) (map[string]any, error) {
	return f(exec, args)
}

func createTaskExecutor(pluginValue reflect.Value, method reflect.Method) Task {
	return &typedTaskWrapper{
		plugin: pluginValue,
		method: method,
		input:  method.Type.In(2),
	}
}

// typedTaskWrapper adapts a plugin method to the map-based Task interface.
// Struct inputs are decoded and validated before the call; struct outputs
// are converted back to maps.
type typedTaskWrapper struct {
	plugin reflect.Value
	method reflect.Method
	input  reflect.Type
}

func (w *typedTaskWrapper) Execute(exec *Execution, args map[string]any) (map[string]any, error) {
	in, err := w.buildInput(args)
	if err != nil {
		return nil, err
	}

	results := w.method.Func.Call([]reflect.Value{
		w.plugin,
		reflect.ValueOf(exec),
		in,
	})

	var callErr error
	if !results[1].IsNil() {
		callErr = results[1].Interface().(error)
	}

	out := results[0].Interface()
	if m, ok := out.(map[string]any); ok {
		return m, callErr
	}

	if callErr != nil {
		return nil, callErr
	}

	outMap, err := structToMap(out)
	if err != nil {
		return nil, fmt.Errorf("task %s: failed to convert output: %w", w.method.Name, err)
	}
	return outMap, nil
}

func (w *typedTaskWrapper) buildInput(args map[string]any) (reflect.Value, error) {
	if w.input == mapType {
		if args == nil {
			args = map[string]any{}
		}
		return reflect.ValueOf(args), nil
	}

	ptr := reflect.New(w.input)
	if err := mapToStruct(args, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("task %s: invalid input: %w", w.method.Name, err)
	}
	if err := ValidateStruct(ptr.Elem().Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("task %s: invalid input: %w", w.method.Name, err)
	}
	return ptr.Elem(), nil
}
