package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BDNK1/sflowg-copicake/plugins/copicake"
)

// changeKeys maps --change keys to ChangeSpec fields. Both the flow input
// spelling and the API's camelCase are accepted.
var changeKeys = map[string]func(*copicake.ChangeSpec, string){
	"name":                  func(s *copicake.ChangeSpec, v string) { s.Name = v },
	"type":                  func(s *copicake.ChangeSpec, v string) { s.ChangeType = copicake.ChangeType(v) },
	"change_type":           func(s *copicake.ChangeSpec, v string) { s.ChangeType = copicake.ChangeType(v) },
	"text":                  func(s *copicake.ChangeSpec, v string) { s.Text = v },
	"fill":                  func(s *copicake.ChangeSpec, v string) { s.Fill = v },
	"stroke":                func(s *copicake.ChangeSpec, v string) { s.Stroke = v },
	"text_background_color": func(s *copicake.ChangeSpec, v string) { s.TextBackgroundColor = v },
	"textBackgroundColor":   func(s *copicake.ChangeSpec, v string) { s.TextBackgroundColor = v },
	"src":                   func(s *copicake.ChangeSpec, v string) { s.Src = v },
	"content":               func(s *copicake.ChangeSpec, v string) { s.Content = v },
}

// parseChangeFlag parses "name=title,type=text,text=Hi". Values cannot
// contain commas; use --changes-json for those.
func parseChangeFlag(flag string) (copicake.ChangeSpec, error) {
	var spec copicake.ChangeSpec
	for _, pair := range strings.Split(flag, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return spec, fmt.Errorf("change %q: expected key=value, got %q", flag, pair)
		}
		set, known := changeKeys[strings.TrimSpace(key)]
		if !known {
			return spec, fmt.Errorf("change %q: unknown key %q", flag, key)
		}
		set(&spec, value)
	}

	if spec.Name == "" {
		return spec, fmt.Errorf("change %q: name is required", flag)
	}
	return spec, nil
}

// collectChanges returns the --changes-json entries followed by the
// --change flags, in the order given.
func collectChanges(flags []string, changesJSON string) ([]copicake.ChangeSpec, error) {
	var specs []copicake.ChangeSpec
	if strings.TrimSpace(changesJSON) != "" {
		if err := json.Unmarshal([]byte(changesJSON), &specs); err != nil {
			return nil, fmt.Errorf("--changes-json: %w", err)
		}
	}

	for _, f := range flags {
		spec, err := parseChangeFlag(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
