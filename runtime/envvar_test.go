package runtime

import (
	"testing"
)

func TestParseEnvVar(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  EnvVarSpec
	}{
		{
			name:  "required variable",
			input: "${COPICAKE_API_KEY}",
			want:  EnvVarSpec{VarName: "COPICAKE_API_KEY"},
		},
		{
			name:  "variable with default",
			input: "${COPICAKE_BASE_URL:https://api.copicake.com}",
			want:  EnvVarSpec{VarName: "COPICAKE_BASE_URL", HasDefault: true, DefaultValue: "https://api.copicake.com"},
		},
		{
			name:  "empty default",
			input: "${PREFIX:}",
			want:  EnvVarSpec{VarName: "PREFIX", HasDefault: true},
		},
		{
			name:  "literal",
			input: "tpl_123",
			want:  EnvVarSpec{IsLiteral: true, LiteralValue: "tpl_123"},
		},
		{
			name:  "embedded reference is literal",
			input: "key-${COPICAKE_API_KEY}",
			want:  EnvVarSpec{IsLiteral: true, LiteralValue: "key-${COPICAKE_API_KEY}"},
		},
		{
			name:  "lowercase name is literal",
			input: "${api_key}",
			want:  EnvVarSpec{IsLiteral: true, LiteralValue: "${api_key}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEnvVar(tt.input)
			if got != tt.want {
				t.Errorf("ParseEnvVar(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvVarSpec_Resolve(t *testing.T) {
	t.Setenv("SFLOWG_TEST_SET", "from-env")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"set variable", "${SFLOWG_TEST_SET}", "from-env", false},
		{"set variable ignores default", "${SFLOWG_TEST_SET:fallback}", "from-env", false},
		{"unset with default", "${SFLOWG_TEST_UNSET:fallback}", "fallback", false},
		{"unset required", "${SFLOWG_TEST_UNSET}", "", true},
		{"literal", "plain", "plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnvVar(tt.input).Resolve()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolveEnv_Nested(t *testing.T) {
	t.Setenv("SFLOWG_TEST_KEY", "secret")

	resolved, err := ResolveEnv(map[string]any{
		"api_key": "${SFLOWG_TEST_KEY}",
		"timeout": 30,
		"headers": []any{"${SFLOWG_TEST_MISSING:none}", "literal"},
	})
	if err != nil {
		t.Fatalf("ResolveEnv failed: %v", err)
	}

	m := resolved.(map[string]any)
	if m["api_key"] != "secret" {
		t.Errorf("Expected api_key 'secret', got %v", m["api_key"])
	}
	if m["timeout"] != 30 {
		t.Errorf("Expected non-string values unchanged, got %v", m["timeout"])
	}
	headers := m["headers"].([]any)
	if headers[0] != "none" || headers[1] != "literal" {
		t.Errorf("Unexpected headers: %v", headers)
	}
}

func TestResolveEnv_MissingRequired(t *testing.T) {
	_, err := ResolveEnv(map[string]any{"api_key": "${SFLOWG_TEST_NEVER_SET}"})
	if err == nil {
		t.Fatal("Expected error for unset required variable")
	}
}
