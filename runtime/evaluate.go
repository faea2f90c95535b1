package runtime

import "fmt"

// EvaluateValue evaluates every string inside value as an expression,
// recursing into maps and slices. Non-string literals are returned as is.
// String literals must be quoted inside the expression: '"tpl_123"'.
func EvaluateValue(evaluator ExpressionEvaluator, values map[string]any, path string, value any) (any, error) {
	switch v := value.(type) {
	case string:
		result, err := evaluator.Eval(v, values)
		if err != nil {
			return nil, fmt.Errorf("error evaluating expression '%s' at %s: %w", v, path, err)
		}
		return result, nil
	case map[string]any:
		evaluated := make(map[string]any, len(v))
		for key, val := range v {
			r, err := EvaluateValue(evaluator, values, path+"."+key, val)
			if err != nil {
				return nil, err
			}
			evaluated[key] = r
		}
		return evaluated, nil
	case []any:
		evaluated := make([]any, len(v))
		for i, val := range v {
			r, err := EvaluateValue(evaluator, values, fmt.Sprintf("%s[%d]", path, i), val)
			if err != nil {
				return nil, err
			}
			evaluated[i] = r
		}
		return evaluated, nil
	default:
		return value, nil
	}
}

// EvaluateArgs evaluates a step or return argument map.
func EvaluateArgs(evaluator ExpressionEvaluator, values map[string]any, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		r, err := EvaluateValue(evaluator, values, k, v)
		if err != nil {
			return nil, err
		}
		out[k] = r
	}
	return out, nil
}
