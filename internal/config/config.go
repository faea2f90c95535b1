package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BDNK1/sflowg-copicake/runtime"
	"gopkg.in/yaml.v3"
)

// FileName is the host configuration file looked up next to the flows.
const FileName = "flow-config.yaml"

// FlowConfig represents the flow-config.yaml structure
type FlowConfig struct {
	Name       string         `yaml:"name"`       // Optional: defaults to directory name
	Runtime    RuntimeConfig  `yaml:"runtime"`    // Optional: server settings
	Properties map[string]any `yaml:"properties"` // Optional: global properties for all flows
	Plugins    []PluginConfig `yaml:"plugins"`
}

// RuntimeConfig represents runtime configuration
type RuntimeConfig struct {
	Port     string `yaml:"port"`      // Optional: HTTP server port, defaults to "8080"
	FlowsDir string `yaml:"flows_dir"` // Optional: relative to the config file, defaults to "flows"
}

// PluginConfig enables one plugin. Config values may use ${VAR} and
// ${VAR:default}; they are resolved when the host starts.
type PluginConfig struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config,omitempty"`
}

// Load reads and parses a flow-config.yaml file.
func Load(path string) (*FlowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var config FlowConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyDefaults(filepath.Dir(path))
	return &config, nil
}

// Default is the configuration used when no file exists: the copicake
// plugin keyed from COPICAKE_API_KEY.
func Default(projectDir string) *FlowConfig {
	c := &FlowConfig{
		Plugins: []PluginConfig{
			{
				Name: "copicake",
				Config: map[string]any{
					"api_key":  "${COPICAKE_API_KEY}",
					"base_url": "${COPICAKE_BASE_URL:https://api.copicake.com}",
				},
			},
		},
	}
	c.ApplyDefaults(projectDir)
	return c
}

// Validate checks that the config has all required fields
func (c *FlowConfig) Validate() error {
	if len(c.Plugins) == 0 {
		return fmt.Errorf("at least one plugin must be specified")
	}

	seen := make(map[string]bool, len(c.Plugins))
	for i, plugin := range c.Plugins {
		if plugin.Name == "" {
			return fmt.Errorf("plugin #%d: name field is required", i)
		}
		if seen[plugin.Name] {
			return fmt.Errorf("plugin #%d: duplicate plugin %q", i, plugin.Name)
		}
		seen[plugin.Name] = true
	}

	return nil
}

// ApplyDefaults fills in missing optional fields with defaults
func (c *FlowConfig) ApplyDefaults(projectDir string) {
	if c.Name == "" {
		c.Name = getDirectoryName(projectDir)
	}
	if c.Runtime.Port == "" {
		c.Runtime.Port = "8080"
	}
	if c.Runtime.FlowsDir == "" {
		c.Runtime.FlowsDir = "flows"
	}
	if !filepath.IsAbs(c.Runtime.FlowsDir) {
		c.Runtime.FlowsDir = filepath.Join(projectDir, c.Runtime.FlowsDir)
	}
}

// ResolvedConfig returns the plugin's config values with environment
// references substituted.
func (p PluginConfig) ResolvedConfig() (map[string]any, error) {
	if len(p.Config) == 0 {
		return nil, nil
	}
	resolved, err := runtime.ResolveEnv(p.Config)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", p.Name, err)
	}
	return resolved.(map[string]any), nil
}

// getDirectoryName extracts the last component of a path
func getDirectoryName(path string) string {
	if path == "." || path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "sflowg-app"
		}
		path = cwd
	}

	return filepath.Base(path)
}
