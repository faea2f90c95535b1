package plugin

import (
	"github.com/BDNK1/sflowg-copicake/runtime"
)

// Initializer plugins have Initialize called at container startup.
// An error aborts startup.
type Initializer = runtime.Initializer

// Shutdowner plugins have Shutdown called during graceful shutdown,
// in reverse order of initialization.
type Shutdowner = runtime.Shutdowner
