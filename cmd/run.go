package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var runInput string

var runCmd = &cobra.Command{
	Use:   "run <flow-id>",
	Short: "Run a single flow and print its result",
	Long: `Run executes one flow without starting a server. The input is bound to
request.body and the evaluated return arguments are printed as JSON.

Example:
  copicake-flow run render_card --input '{"title": "Hello"}'
  copicake-flow run render_card --input @input.json
`,
	Args: cobra.ExactArgs(1),
	RunE: runFlow,
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "Flow input as JSON, or @file to read it from a file")
}

func runFlow(cmd *cobra.Command, args []string) error {
	body, err := parseInput(runInput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	h, err := newHost(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer h.shutdown()

	result, err := h.runFlow(cmd.Context(), args[0], body)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

// parseInput decodes a JSON literal or, with a leading '@', a JSON file.
// An empty input is an empty object.
func parseInput(input string) (any, error) {
	raw := []byte(input)
	if path, ok := strings.CutPrefix(input, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		raw = data
	}

	if strings.TrimSpace(string(raw)) == "" {
		return map[string]any{}, nil
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("input is not valid JSON: %w", err)
	}
	return body, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
