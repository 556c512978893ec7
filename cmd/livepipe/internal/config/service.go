package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Gemini holds Gemini Live backend settings for one context, stored as
// gemini.yaml.
type Gemini struct {
	APIKey            string   `yaml:"api_key"`
	Model             string   `yaml:"model,omitempty"`
	SystemInstruction string   `yaml:"system_instruction,omitempty"`
	Modalities        []string `yaml:"modalities,omitempty"`
}

// OpenAI holds OpenAI Realtime backend settings for one context, stored as
// openai.yaml.
type OpenAI struct {
	APIKey       string   `yaml:"api_key"`
	Model        string   `yaml:"model,omitempty"`
	URL          string   `yaml:"url,omitempty"`
	Organization string   `yaml:"organization,omitempty"`
	Instructions string   `yaml:"instructions,omitempty"`
	Modalities   []string `yaml:"modalities,omitempty"`
}

// LoadService loads a backend configuration from a context directory. The
// service name maps to a YAML file: "{contextDir}/{service}.yaml".
func LoadService[T any](contextDir, service string) (*T, error) {
	path := filepath.Join(contextDir, service+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("backend %q not configured in context (expected: %s)", service, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &v, nil
}

// SaveService writes a backend configuration to a context directory.
func SaveService[T any](contextDir, service string, v *T) error {
	if err := os.MkdirAll(contextDir, 0755); err != nil {
		return fmt.Errorf("create context dir: %w", err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", service, err)
	}

	path := filepath.Join(contextDir, service+".yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
