package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/BDNK1/sflowg-copicake/internal/config"
	"github.com/BDNK1/sflowg-copicake/plugins/copicake"
	"github.com/BDNK1/sflowg-copicake/runtime"
	flowyaml "github.com/BDNK1/sflowg-copicake/runtime/engine/yaml"
)

// pluginFactory returns a plugin instance and a pointer to its Config
// struct for runtime.InitializeConfig.
type pluginFactory func(l *slog.Logger) (plugin any, config any)

var pluginFactories = map[string]pluginFactory{
	"copicake": func(l *slog.Logger) (any, any) {
		p := copicake.NewPlugin()
		p.Logger = l
		return p, &p.Config
	},
}

// host is a running container with its flows loaded.
type host struct {
	cfg       *config.FlowConfig
	container *runtime.Container
	app       *runtime.App
	executor  *runtime.Executor
	startup   *runtime.Execution
	l         *slog.Logger
}

// loadConfig reads path, or ./flow-config.yaml when path is empty. Only the
// implicit default may be missing.
func loadConfig(path string) (*config.FlowConfig, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.Load(config.FileName)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default("."), nil
	}
	return cfg, err
}

// newHost registers and initializes every configured plugin, then loads
// the flows. Plugins are shut down again if a later step fails.
func newHost(ctx context.Context, cfg *config.FlowConfig, l *slog.Logger) (*host, error) {
	container := runtime.NewContainer()

	for _, pc := range cfg.Plugins {
		factory, ok := pluginFactories[pc.Name]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q (available: %v)", pc.Name, availablePlugins())
		}

		plugin, pluginConfig := factory(l)
		raw, err := pc.ResolvedConfig()
		if err != nil {
			return nil, err
		}
		if err := runtime.InitializeConfig(pluginConfig, raw); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", pc.Name, err)
		}
		if err := container.RegisterPlugin(pc.Name, plugin); err != nil {
			return nil, err
		}
	}

	startup, err := runtime.NewExecution(&runtime.Flow{ID: "startup"}, container, cfg.Properties, flowyaml.NewValueStore())
	if err != nil {
		return nil, err
	}
	startup = startup.WithContext(ctx)

	if err := container.Initialize(startup); err != nil {
		return nil, err
	}

	h := &host{
		cfg:       cfg,
		container: container,
		startup:   startup,
		l:         l,
	}

	app, err := runtime.NewApp(cfg.Runtime.FlowsDir, flowyaml.NewFlowLoader(), container)
	if err != nil {
		h.shutdown()
		return nil, err
	}
	h.app = app

	evaluator := flowyaml.NewExpressionEvaluator()
	h.executor = runtime.NewExecutor(l, evaluator, flowyaml.NewStepExecutor(evaluator, l))

	l.Info("Host started",
		"name", cfg.Name,
		"plugins", len(cfg.Plugins),
		"tasks", len(container.Tasks),
		"flows", len(app.Flows))
	return h, nil
}

func (h *host) newStore() runtime.ValueStore {
	return flowyaml.NewValueStore()
}

// runFlow executes one flow with body bound to request.body.
func (h *host) runFlow(ctx context.Context, flowID string, body any) (map[string]any, error) {
	flow, ok := h.app.Flows[flowID]
	if !ok {
		return nil, fmt.Errorf("flow %q not found", flowID)
	}

	e, err := runtime.NewExecution(&flow, h.container, h.cfg.Properties, h.newStore())
	if err != nil {
		return nil, err
	}
	e = e.WithContext(ctx)
	e.AddValue(runtime.RequestBodyKey, body)

	return h.executor.Run(e)
}

func (h *host) shutdown() {
	if err := h.container.Shutdown(h.startup.WithContext(context.Background())); err != nil {
		h.l.Error("Plugin shutdown failed", "error", err)
	}
}

func availablePlugins() []string {
	names := make([]string, 0, len(pluginFactories))
	for name := range pluginFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
