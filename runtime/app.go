package runtime

import (
	"fmt"
	"path/filepath"
)

type App struct {
	Container *Container
	Flows     map[string]Flow
}

// NewApp loads every flow in flowsDir the loader recognizes.
func NewApp(flowsDir string, loader FlowLoader, container *Container) (*App, error) {
	app := App{
		Container: container,
		Flows:     make(map[string]Flow),
	}

	for _, pattern := range loader.Extensions() {
		files, err := filepath.Glob(filepath.Join(flowsDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("error reading directory: %w", err)
		}

		for _, file := range files {
			flow, err := loader.Load(file)
			if err != nil {
				return nil, fmt.Errorf("flow %s: %w", file, err)
			}
			if err := app.RegisterFlow(flow); err != nil {
				return nil, fmt.Errorf("flow %s: %w", file, err)
			}
		}
	}

	return &app, nil
}

func (a *App) RegisterTask(name string, task Task) {
	a.Container.SetTask(name, task)
}

// RegisterFlow adds a flow after checking that its tasks exist.
func (a *App) RegisterFlow(flow Flow) error {
	if flow.ID == "" {
		return fmt.Errorf("flow id is required")
	}
	if _, exists := a.Flows[flow.ID]; exists {
		return fmt.Errorf("duplicate flow id %q", flow.ID)
	}

	seen := make(map[string]bool, len(flow.Steps))
	for _, s := range flow.Steps {
		if s.ID == "" {
			return fmt.Errorf("step of type %q has no id", s.Type)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true

		if s.Type != StepTypeAssign && a.Container.GetTask(s.Type) == nil {
			return fmt.Errorf("step %s: %w: %s", s.ID, ErrTaskNotFound, s.Type)
		}
	}

	a.Flows[flow.ID] = flow
	return nil
}

// StepTypeAssign stores evaluated args under the step id without calling a task.
const StepTypeAssign = "assign"
