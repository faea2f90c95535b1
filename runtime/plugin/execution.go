package plugin

import "github.com/BDNK1/sflowg-copicake/runtime"

// Execution is the runtime context passed to every plugin task method.
// It implements context.Context.
type Execution = runtime.Execution
