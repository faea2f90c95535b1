// Package plugin is the surface plugin authors import.
//
// It re-exports the few runtime types a plugin needs so plugins never
// import the runtime package itself:
//
//	import "github.com/BDNK1/sflowg-copicake/runtime/plugin"
//
// # Plugin Structure
//
// A plugin is a struct with an exported Config and one or more task methods:
//
//	type Config struct {
//	    APIKey  string        `yaml:"api_key" validate:"required"`
//	    Timeout time.Duration `yaml:"timeout" default:"30s" validate:"gte=1s"`
//	}
//
//	type MyPlugin struct {
//	    Config Config
//	}
//
//	func (p *MyPlugin) Greet(exec *plugin.Execution, input GreetInput) (GreetOutput, error)
//
// Input and output may be structs (decoded from the step args with json
// tags and validated with validate tags) or plugin.Input / plugin.Output.
// Task names are "<plugin>.<method>" with the first letter lowercased:
// registering MyPlugin as "my" exposes "my.greet".
//
// # Lifecycle
//
// Plugins implementing Initializer are initialized in registration order
// once their Config has been defaulted and validated; Shutdowner plugins
// are shut down in reverse order.
//
// # Execution Context
//
// Execution implements context.Context. Pass it to anything that takes a
// context so step timeouts and request cancellation reach outbound calls.
package plugin
