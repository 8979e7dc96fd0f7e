package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# local overrides
PLAIN_KEY=plain-value
QUOTED_KEY="quoted value"
SINGLE_QUOTED='single value'
PRESET_KEY=file-value

not a key value line
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("PRESET_KEY", "env-value")
	for _, key := range []string{"PLAIN_KEY", "QUOTED_KEY", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
	}

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if got := os.Getenv("PLAIN_KEY"); got != "plain-value" {
		t.Errorf("PLAIN_KEY = %q", got)
	}
	if got := os.Getenv("QUOTED_KEY"); got != "quoted value" {
		t.Errorf("QUOTED_KEY = %q", got)
	}
	if got := os.Getenv("SINGLE_QUOTED"); got != "single value" {
		t.Errorf("SINGLE_QUOTED = %q", got)
	}
	if got := os.Getenv("PRESET_KEY"); got != "env-value" {
		t.Errorf("PRESET_KEY = %q, environment must win over the file", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		raw   string
		key   string
		value string
		ok    bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"  KEY = value  ", "KEY", "value", true},
		{`KEY="with spaces"`, "KEY", "with spaces", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no equals sign", "", "", false},
		{"=orphan", "", "", false},
	}
	for _, tt := range tests {
		key, value, ok := parseEnvLine(tt.raw)
		if key != tt.key || value != tt.value || ok != tt.ok {
			t.Errorf("parseEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.raw, key, value, ok, tt.key, tt.value, tt.ok)
		}
	}
}
