package runtime

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	executionPtrType = reflect.TypeOf((*Execution)(nil))
	mapType          = reflect.TypeOf(map[string]any(nil))
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
)

type Container struct {
	Tasks       map[string]Task
	plugins     map[string]any
	pluginOrder []string // registration order, drives Initialize/Shutdown order
}

func NewContainer() *Container {
	return &Container{
		Tasks:   make(map[string]Task),
		plugins: make(map[string]any),
	}
}

func (c *Container) GetTask(name string) Task {
	task, ok := c.Tasks[name]
	if !ok {
		return nil
	}
	return task
}

func (c *Container) SetTask(name string, task Task) {
	c.Tasks[name] = task
}

// RegisterPlugin registers a plugin instance and discovers its tasks.
//
// Every exported method shaped like
//
//	func (p *Plugin) Name(exec *Execution, in In) (Out, error)
//
// becomes task "pluginName.name", where In and Out are map[string]any or a
// struct type.
func (c *Container) RegisterPlugin(pluginName string, plugin any) error {
	if plugin == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	if _, exists := c.plugins[pluginName]; exists {
		return fmt.Errorf("plugin %q already registered", pluginName)
	}

	c.plugins[pluginName] = plugin
	c.pluginOrder = append(c.pluginOrder, pluginName)

	pluginType := reflect.TypeOf(plugin)
	pluginValue := reflect.ValueOf(plugin)

	for i := 0; i < pluginType.NumMethod(); i++ {
		method := pluginType.Method(i)

		if !method.IsExported() || !isValidTaskSignature(method.Type) {
			continue
		}

		taskName := fmt.Sprintf("%s.%s", pluginName, toLowerFirst(method.Name))
		c.Tasks[taskName] = createTaskExecutor(pluginValue, method)
	}

	return nil
}

func (c *Container) GetPlugin(name string) any {
	return c.plugins[name]
}

// Initialize calls Initialize on every plugin implementing Initializer, in
// registration order. The first failure aborts start-up.
func (c *Container) Initialize(exec *Execution) error {
	for _, name := range c.pluginOrder {
		initializer, ok := c.plugins[name].(Initializer)
		if !ok {
			continue
		}
		if err := initializer.Initialize(exec); err != nil {
			return fmt.Errorf("plugin %s initialization failed: %w", name, err)
		}
	}
	return nil
}

// Shutdown calls Shutdown on every plugin implementing Shutdowner, in
// reverse registration order, and joins the errors.
func (c *Container) Shutdown(exec *Execution) error {
	var errs []error
	for i := len(c.pluginOrder) - 1; i >= 0; i-- {
		name := c.pluginOrder[i]
		shutdowner, ok := c.plugins[name].(Shutdowner)
		if !ok {
			continue
		}
		if err := shutdowner.Shutdown(exec); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s shutdown failed: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// isValidTaskSignature reports whether a method type (receiver included)
// has shape func(*Execution, In) (Out, error).
func isValidTaskSignature(methodType reflect.Type) bool {
	if methodType.NumIn() != 3 || methodType.NumOut() != 2 {
		return false
	}

	if methodType.In(1) != executionPtrType {
		return false
	}

	if !isTaskPayloadType(methodType.In(2)) || !isTaskPayloadType(methodType.Out(0)) {
		return false
	}

	return methodType.Out(1) == errorType
}

func isTaskPayloadType(t reflect.Type) bool {
	return t == mapType || t.Kind() == reflect.Struct
}

func toLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}
