package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPipelineConfig(t *testing.T) {
	t.Setenv("NS_SECRET", "hunter2")

	path := writeConfig(t, `
pipeline:
  name: nightly
  source:
    type: netsuite
    config:
      security:
        credentials:
          client_secret: ${NS_SECRET}
          account_identifier: ${NS_ACCOUNT:-acct1}
  destination:
    type: jsonfile
    config:
      security:
        credentials:
          output_dir: out
`)

	cfg, err := LoadPipelineConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Pipeline.Name)
	assert.Equal(t, "netsuite", cfg.Pipeline.Source.Type)
	assert.Equal(t, "jsonfile", cfg.Pipeline.Destination.Type)

	sec := cfg.Pipeline.Source.Config["security"].(map[string]interface{})
	creds := sec["credentials"].(map[string]interface{})
	assert.Equal(t, "hunter2", creds["client_secret"])
	assert.Equal(t, "acct1", creds["account_identifier"])
}

func TestLoadPipelineConfigMissingEnvVar(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  source:
    type: netsuite
    config:
      token: ${DEFINITELY_NOT_SET_VAR}
  destination:
    type: jsonfile
    config: {}
`)

	_, err := LoadPipelineConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFINITELY_NOT_SET_VAR")
}

func TestLoadPipelineConfigMissingTypes(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  source:
    config: {}
  destination:
    type: jsonfile
`)

	_, err := LoadPipelineConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.type")
}

func TestBaseConfigFromMap(t *testing.T) {
	raw := map[string]interface{}{
		"security": map[string]interface{}{
			"credentials": map[string]interface{}{
				"account_identifier": "acct",
			},
		},
		"reliability": map[string]interface{}{
			"retry_attempts": 5,
		},
	}

	cfg, err := BaseConfigFromMap("src", "netsuite", raw)
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Name)
	assert.Equal(t, "netsuite", cfg.Type)
	assert.Equal(t, "acct", cfg.Security.Credentials["account_identifier"])
	assert.Equal(t, 5, cfg.Reliability.RetryAttempts)
	// Defaults applied
	assert.Equal(t, 1000, cfg.Performance.BatchSize)
}

func TestBaseConfigDefaultsAndValidation(t *testing.T) {
	cfg := NewBaseConfig("x", "netsuite")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Reliability.RetryAttempts)

	bad := &BaseConfig{}
	assert.Error(t, bad.Validate())
}

func TestCredential(t *testing.T) {
	cfg := NewBaseConfig("x", "netsuite")
	cfg.Security.Credentials = map[string]string{"client_id": "cid"}

	v, err := cfg.Credential("client_id")
	require.NoError(t, err)
	assert.Equal(t, "cid", v)

	_, err = cfg.Credential("client_secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_secret")
}
