package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://endoflife.date/api", cfg.EOL.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.EOL.Timeout.Std())
	assert.Equal(t, 3, cfg.EOL.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.EOL.InterCallDelay.Std())
	assert.InDelta(t, 0.7, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Matching.MaxIterations)
	assert.Equal(t, ModeAgentic, cfg.Matching.Mode)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, ModelClaudeSonnet, cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout.Std())
	assert.Equal(t, "data/reference.xlsx", cfg.Paths.ReferenceFile)
	assert.Equal(t, "output/eolmatch.db", cfg.Paths.Database)
	assert.Equal(t, DefaultSecretsFile, cfg.Secrets.File)
}

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("TEST_EOL_URL", "http://localhost:8080/api")
	path := writeFile(t, "eolmatch.yaml", `
eol:
  base_url: ${TEST_EOL_URL}
  timeout: 5s
  max_attempts: 5
matching:
  mode: direct
  confidence_threshold: 0.8
llm:
  model: gpt-4o-mini
paths:
  output_dir: /tmp/out
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.EOL.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.EOL.Timeout.Std())
	assert.Equal(t, 5, cfg.EOL.MaxAttempts)
	assert.Equal(t, ModeDirect, cfg.Matching.Mode)
	assert.InDelta(t, 0.8, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider, "provider inferred from model")
	assert.Equal(t, "/tmp/out", cfg.Paths.OutputDir)
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"llm": {"provider": "ollama", "timeout": "45s"},
		"eol": {"inter_call_delay": "250ms"},
		"debug": {"enabled": true, "domains": ["eol", "toolloop"]}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, ModelOllama, cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.EOL.InterCallDelay.Std())
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, []string{"eol", "toolloop"}, cfg.Debug.Domains)
}

func TestUnknownPlaceholderKept(t *testing.T) {
	got := substituteEnv([]byte(`url: ${EOLMATCH_TEST_DEFINITELY_UNSET}`))
	assert.Equal(t, `url: ${EOLMATCH_TEST_DEFINITELY_UNSET}`, string(got))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EOLMATCH_LLM_MODEL", "gemini-2.5-pro")
	t.Setenv("EOLMATCH_LLM_PROVIDER", "google")
	t.Setenv("EOLMATCH_EOL_TIMEOUT", "10s")
	t.Setenv("EOLMATCH_MATCHING_MAX_ITERATIONS", "7")
	t.Setenv("EOLMATCH_MATCHING_CONFIDENCE_THRESHOLD", "0.65")
	t.Setenv("EOLMATCH_METRICS_ENABLED", "true")
	t.Setenv("EOLMATCH_DEBUG_DOMAINS", "eol, tools")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, ProviderGoogle, cfg.LLM.Provider)
	assert.Equal(t, 10*time.Second, cfg.EOL.Timeout.Std())
	assert.Equal(t, 7, cfg.Matching.MaxIterations)
	assert.InDelta(t, 0.65, cfg.Matching.ConfidenceThreshold, 1e-9)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"eol", "tools"}, cfg.Debug.Domains)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "extension")

	_, err = LoadConfig(writeFile(t, "bad.yaml", "eol:\n  timeout: soon\n"))
	assert.ErrorContains(t, err, "invalid duration")

	_, err = LoadConfig(writeFile(t, "mode.yaml", "matching:\n  mode: batch\n"))
	assert.ErrorContains(t, err, "matching.mode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults valid", mutate: func(*Config) {}},
		{name: "threshold above one", mutate: func(c *Config) { c.Matching.ConfidenceThreshold = 1.5 }, wantErr: "confidence_threshold"},
		{name: "zero iterations", mutate: func(c *Config) { c.Matching.MaxIterations = 0 }, wantErr: "max_iterations"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "acme" }, wantErr: "llm.provider"},
		{name: "zero attempts", mutate: func(c *Config) { c.EOL.MaxAttempts = 0 }, wantErr: "eol.max_attempts"},
		{name: "negative delay", mutate: func(c *Config) { c.EOL.InterCallDelay = -1 }, wantErr: "inter_call_delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "flag.yaml", ResolvePath("flag.yaml"))

	t.Setenv(EnvConfigPath, "env.yaml")
	assert.Equal(t, "env.yaml", ResolvePath(""))
}

func TestGetModelProvider(t *testing.T) {
	cases := map[string]string{
		"claude-sonnet-4-20250514": ProviderAnthropic,
		"gpt-4o":                   ProviderOpenAI,
		"o3-mini":                  ProviderOpenAI,
		"gemini-2.5-flash":         ProviderGoogle,
		"llama3.1":                 ProviderOllama,
	}
	for model, want := range cases {
		got, err := GetModelProvider(model)
		require.NoError(t, err)
		assert.Equal(t, want, got, model)
	}

	_, err := GetModelProvider("mystery-model")
	assert.Error(t, err)
}

func TestGetAPIKey(t *testing.T) {
	SetDecryptedSecrets(nil)
	t.Setenv(EnvAnthropicAPIKey, "")
	t.Setenv(EnvClaudeAPIKey, "sk-claude")

	key, err := GetAPIKey(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-claude", key)

	t.Setenv(EnvOpenAIAPIKey, "")
	_, err = GetAPIKey(ProviderOpenAI)
	assert.ErrorContains(t, err, EnvOpenAIAPIKey)

	t.Setenv(EnvOllamaHost, "")
	host, err := GetAPIKey(ProviderOllama)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", host)

	_, err = GetAPIKey("acme")
	assert.Error(t, err)
}
