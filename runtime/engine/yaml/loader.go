package yaml

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BDNK1/sflowg-copicake/runtime"
	goyaml "gopkg.in/yaml.v3"
)

// FlowLoader loads flow definitions from YAML files.
type FlowLoader struct{}

func NewFlowLoader() *FlowLoader {
	return &FlowLoader{}
}

func (l *FlowLoader) Extensions() []string {
	return []string{"*.yaml", "*.yml"}
}

func (l *FlowLoader) Load(filePath string) (runtime.Flow, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return runtime.Flow{}, fmt.Errorf("error reading YAML file: %w", err)
	}

	return Parse(yamlFile)
}

// Parse decodes a single flow document. Unknown fields are rejected so
// typos such as "continue_on_failure" do not silently change behavior.
func Parse(data []byte) (runtime.Flow, error) {
	var flow runtime.Flow
	dec := goyaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&flow); err != nil {
		return runtime.Flow{}, fmt.Errorf("error unmarshalling YAML: %w", err)
	}

	for _, s := range flow.Steps {
		if s.Parallel < 0 {
			return runtime.Flow{}, fmt.Errorf("step %s: parallel must be >= 0", s.ID)
		}
		if s.Timeout < 0 {
			return runtime.Flow{}, fmt.Errorf("step %s: timeout must be >= 0", s.ID)
		}
		if s.Parallel > 0 && s.ForEach == "" {
			return runtime.Flow{}, fmt.Errorf("step %s: parallel requires for_each", s.ID)
		}
	}

	return flow, nil
}
