package yaml

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// Custom expression functions available in all flows
var exprFunctions = []expr.Option{
	expr.Function("base64_encode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	}),
	expr.Function("base64_decode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}),
}

// ExpressionEvaluator evaluates expressions using the expr-lang library.
// Variables are the nested execution values: create.result.data.status.
type ExpressionEvaluator struct{}

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

func (e *ExpressionEvaluator) Eval(expression string, values map[string]any) (any, error) {
	env := make(map[string]any, len(values)+1)
	for k, v := range values {
		env[k] = v
	}
	// null as alias for nil (JSON/YAML compatibility)
	env["null"] = nil

	// defined() distinguishes a missing path from a null value:
	// defined("create.result.data.url")
	definedFn := expr.Function(
		"defined",
		func(params ...any) (any, error) {
			path, ok := params[0].(string)
			if !ok {
				return false, fmt.Errorf("defined() expects string path argument, got %T", params[0])
			}
			_, exists := lookup(env, strings.Split(FormatKey(path), "."))
			return exists, nil
		},
		new(func(string) bool),
	)

	// expr.Env must come before AllowUndefinedVariables
	opts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		definedFn,
	}
	opts = append(opts, exprFunctions...)

	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}
