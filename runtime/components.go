package runtime

type Flow struct {
	ID         string         `yaml:"id"`
	Entrypoint Entrypoint     `yaml:"entrypoint"`
	Steps      []Step         `yaml:"steps"`
	Properties map[string]any `yaml:"properties"`
	Return     Return         `yaml:"return"`
}

type Entrypoint struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

// Step is a single unit of work in a flow.
//
// Type is either a built-in ("assign") or a task name registered in the
// container ("copicake.create"). When ForEach is set the task runs once per
// element of the evaluated list, with the element bound as `item` and its
// position as `index`.
type Step struct {
	ID             string         `yaml:"id"`
	Type           string         `yaml:"type"`
	Condition      string         `yaml:"condition,omitempty"`
	Args           map[string]any `yaml:"args"`
	ForEach        string         `yaml:"for_each,omitempty"`
	Parallel       int            `yaml:"parallel,omitempty"`
	ContinueOnFail bool           `yaml:"continue_on_fail,omitempty"`
	Timeout        int            `yaml:"timeout,omitempty"` // seconds; 0 = no step deadline
}

type Return struct {
	Args map[string]any `yaml:"args"`
}
