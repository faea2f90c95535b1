package runtime

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvVarSpec is a parsed config value that may reference an environment
// variable.
type EnvVarSpec struct {
	VarName      string
	HasDefault   bool
	DefaultValue string
	IsLiteral    bool
	LiteralValue string
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// ParseEnvVar parses a config value that may contain environment variable syntax.
//
// Supported formats:
//   - ${VAR}         - Required environment variable
//   - ${VAR:default} - Optional environment variable with default
//   - literal        - Plain literal value
func ParseEnvVar(value string) EnvVarSpec {
	matches := envVarPattern.FindStringSubmatch(value)
	if matches == nil {
		return EnvVarSpec{IsLiteral: true, LiteralValue: value}
	}

	spec := EnvVarSpec{
		VarName:    matches[1],
		HasDefault: matches[2] != "",
	}
	if spec.HasDefault {
		spec.DefaultValue = strings.TrimPrefix(matches[2], ":")
	}
	return spec
}

// Resolve returns the literal value or the value of the referenced
// environment variable.
func (s EnvVarSpec) Resolve() (string, error) {
	if s.IsLiteral {
		return s.LiteralValue, nil
	}
	if v, ok := os.LookupEnv(s.VarName); ok {
		return v, nil
	}
	if s.HasDefault {
		return s.DefaultValue, nil
	}
	return "", fmt.Errorf("required environment variable not set: %s", s.VarName)
}

// ResolveEnv resolves environment references in strings, recursing into
// maps and slices. Other values are returned unchanged.
func ResolveEnv(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return ParseEnvVar(v).Resolve()
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, val := range v {
			r, err := ResolveEnv(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			resolved[key] = r
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, val := range v {
			r, err := ResolveEnv(val)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			resolved[i] = r
		}
		return resolved, nil
	default:
		return value, nil
	}
}
