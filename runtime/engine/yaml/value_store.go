package yaml

import (
	"encoding/json"
	"strings"
	"sync"
)

// ValueStore keeps execution values as nested maps. A dotted key such as
// "create.result" is stored as values["create"]["result"] so expressions
// can navigate it naturally. Hyphens in key segments become underscores.
type ValueStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewValueStore() *ValueStore {
	return &ValueStore{
		values: make(map[string]any),
	}
}

// FormatKey makes a dotted key usable as an expression identifier path.
func FormatKey(key string) string {
	return strings.ReplaceAll(key, "-", "_")
}

func (s *ValueStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(FormatKey(key), ".")
	m := s.values
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = plainNumbers(value)
}

// plainNumbers replaces json.Number at any depth with int64, or float64 when
// the number is not an integer that fits, so expressions can compare and
// do arithmetic on task output. Maps and slices are copied, not mutated.
func plainNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plainNumbers(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainNumbers(e)
		}
		return out
	}
	return v
}

func (s *ValueStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup(s.values, strings.Split(FormatKey(key), "."))
}

// All returns a shallow copy of the top level.
func (s *ValueStore) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func lookup(m map[string]any, parts []string) (any, bool) {
	var cur any = m
	for _, p := range parts {
		cm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = cm[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
