package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewResponsesConfig_ValidConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "responses.json")

	validJSON := `{
		"rules": [
			{"keywords": ["ping"], "reply": "pong"},
			{"keywords": ["foo", "bar"], "reply": "baz"}
		],
		"fallbacks": ["no idea"]
	}`

	if err := os.WriteFile(configPath, []byte(validJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := NewResponsesConfig(configPath)
	if err != nil {
		t.Fatalf("NewResponsesConfig() error = %v, want nil", err)
	}

	if len(config.Rules) != 2 {
		t.Errorf("Rules has %d entries, want 2", len(config.Rules))
	}
	if len(config.Fallbacks) != 1 || config.Fallbacks[0] != "no idea" {
		t.Errorf("Fallbacks = %v, want [no idea]", config.Fallbacks)
	}
	// Fillers were not in the file and keep their defaults
	if len(config.Fillers) != len(DefaultResponsesConfig().Fillers) {
		t.Errorf("Fillers has %d entries, want defaults", len(config.Fillers))
	}
}

func TestNewResponsesConfig_FileNotFound(t *testing.T) {
	config, err := NewResponsesConfig("/nonexistent/path/responses.json")
	if err == nil {
		t.Error("NewResponsesConfig() error = nil, want error for nonexistent file")
	}
	if config != nil {
		t.Error("NewResponsesConfig() returned non-nil config for nonexistent file")
	}
}

func TestNewResponsesConfig_InvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.json")

	if err := os.WriteFile(configPath, []byte(`{ this is not valid json }`), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config, err := NewResponsesConfig(configPath)
	if err == nil {
		t.Error("NewResponsesConfig() error = nil, want error for invalid JSON")
	}
	if config != nil {
		t.Error("NewResponsesConfig() returned non-nil config for invalid JSON")
	}
}

func TestResponsesConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ResponsesConfig
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			config:  *DefaultResponsesConfig(),
			wantErr: false,
		},
		{
			name: "rule without keywords",
			config: ResponsesConfig{
				Rules:     []ResponseRule{{Reply: "x"}},
				Fallbacks: []string{"y"},
			},
			wantErr: true,
		},
		{
			name: "rule without reply",
			config: ResponsesConfig{
				Rules:     []ResponseRule{{Keywords: []string{"x"}}},
				Fallbacks: []string{"y"},
			},
			wantErr: true,
		},
		{
			name:    "no fallbacks",
			config:  ResponsesConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
