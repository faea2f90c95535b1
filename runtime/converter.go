package runtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// mapToStruct converts task arguments to a typed input struct using json tags.
func mapToStruct(m map[string]any, target any) error {
	return decodeWithTag(m, target, "json")
}

// mapToStructFromYAML converts raw plugin config values to a Config struct
// using yaml tags.
func mapToStructFromYAML(m map[string]any, target any) error {
	return decodeWithTag(m, target, "yaml")
}

func decodeWithTag(m map[string]any, target any, tag string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: tag,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true, // "2" -> 2, 2 -> "2", "true" -> true
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode map to struct: %w", err)
	}

	return nil
}

// structToMap converts a task output to map[string]any using a JSON
// round-trip, which respects json tags and custom marshalers.
func structToMap(s any) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal struct: %w", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}

	return result, nil
}
