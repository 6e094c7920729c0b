package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PipelineConfig is the top-level YAML layout for an extraction pipeline.
type PipelineConfig struct {
	Pipeline struct {
		Name   string `yaml:"name"`
		Source struct {
			Type   string                 `yaml:"type"`
			Config map[string]interface{} `yaml:"config"`
		} `yaml:"source"`
		Destination struct {
			Type   string                 `yaml:"type"`
			Config map[string]interface{} `yaml:"config"`
		} `yaml:"destination"`
	} `yaml:"pipeline"`
}

// envVarPattern matches ${VAR} and ${VAR:-default} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// LoadPipelineConfig reads a pipeline YAML file, substituting ${VAR}
// references from the environment before parsing.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded, err := substituteEnvVars(string(data))
	if err != nil {
		return nil, err
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Pipeline.Source.Type == "" {
		return nil, fmt.Errorf("pipeline.source.type is required")
	}
	if cfg.Pipeline.Destination.Type == "" {
		return nil, fmt.Errorf("pipeline.destination.type is required")
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR} references with environment values.
// Unset variables without a default are an error so secrets never parse
// as literal placeholders.
func substituteEnvVars(content string) (string, error) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		if groups[2] != "" {
			return groups[3]
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("unset environment variables referenced in config: %s", strings.Join(missing, ", "))
	}
	return result, nil
}

// BaseConfigFromMap converts a raw config map into a BaseConfig by
// round-tripping through YAML. Connector-specific keys survive inside
// Security.Credentials and the typed sections.
func BaseConfigFromMap(name, connectorType string, raw map[string]interface{}) (*BaseConfig, error) {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode connector config: %w", err)
	}

	cfg := &BaseConfig{Name: name, Type: connectorType}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode connector config: %w", err)
	}

	cfg.Name = name
	cfg.Type = connectorType
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
