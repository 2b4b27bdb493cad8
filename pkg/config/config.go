// Package config loads eolmatch settings from JSON or YAML with environment substitution and defaults.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"eolmatch/pkg/logx"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Default models per provider.
const (
	ModelClaudeSonnet = "claude-sonnet-4-20250514"
	ModelGPT          = "gpt-4o"
	ModelGemini       = "gemini-2.5-flash"
	ModelOllama       = "llama3.1"
)

// Matching modes.
const (
	ModeAgentic = "agentic"
	ModeDirect  = "direct"
)

// Environment variables consulted for credentials and config discovery.
const (
	EnvAnthropicAPIKey  = "ANTHROPIC_API_KEY"
	EnvClaudeAPIKey     = "CLAUDE_API_KEY"
	EnvOpenAIAPIKey     = "OPENAI_API_KEY"
	EnvGoogleAPIKey     = "GOOGLE_API_KEY"
	EnvOllamaHost       = "OLLAMA_HOST"
	EnvConfigPath       = "EOLMATCH_CONFIG"
	EnvSecretsPassword  = "EOLMATCH_SECRETS_PASSWORD"
	DefaultConfigFile   = "eolmatch.yaml"
	DefaultSecretsFile  = "secrets.enc"
	envOverridePrefix   = "EOLMATCH_"
	defaultOllamaHost   = "http://localhost:11434"
	defaultEOLBaseURL   = "https://endoflife.date/api"
	defaultMetricsAddr  = ":9090"
	defaultDebugLogDir  = "logs"
	defaultReferenceXLS = "data/reference.xlsx"
	defaultInputXLS     = "data/input.xlsx"
	defaultOutputDir    = "output"
	defaultDatabase     = "output/eolmatch.db"
)

// Duration is a time.Duration that reads "30s"-style strings from JSON and YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(data))
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// EOLConfig configures the endoflife.date client.
type EOLConfig struct {
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	Timeout        Duration `json:"timeout" yaml:"timeout"`
	MaxAttempts    int      `json:"max_attempts" yaml:"max_attempts"`
	InterCallDelay Duration `json:"inter_call_delay" yaml:"inter_call_delay"`
}

// MatchingConfig configures the matching run.
type MatchingConfig struct {
	Mode                string  `json:"mode" yaml:"mode"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	MaxIterations       int     `json:"max_iterations" yaml:"max_iterations"`
}

// LLMConfig selects and tunes the completion service.
type LLMConfig struct {
	Provider    string   `json:"provider" yaml:"provider"`
	Model       string   `json:"model" yaml:"model"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens"`
	Temperature float64  `json:"temperature" yaml:"temperature"`
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	MaxRetries  int      `json:"max_retries" yaml:"max_retries"`
}

// PathsConfig locates input, reference and output files.
type PathsConfig struct {
	ReferenceFile string `json:"reference_file" yaml:"reference_file"`
	InputFile     string `json:"input_file" yaml:"input_file"`
	OutputDir     string `json:"output_dir" yaml:"output_dir"`
	Database      string `json:"database" yaml:"database"`
}

// MetricsConfig controls the /metrics endpoint and end-of-run usage query.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddr    string `json:"listen_addr" yaml:"listen_addr"`
	PrometheusURL string `json:"prometheus_url,omitempty" yaml:"prometheus_url,omitempty"`
}

// DebugConfig mirrors the logx debug switches.
type DebugConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	LogFile bool     `json:"log_file" yaml:"log_file"`
	LogDir  string   `json:"log_dir" yaml:"log_dir"`
	Domains []string `json:"domains,omitempty" yaml:"domains,omitempty"`
}

// SecretsConfig locates the encrypted secrets file.
type SecretsConfig struct {
	File string `json:"file" yaml:"file"`
}

// Config is the complete eolmatch configuration.
type Config struct {
	EOL      EOLConfig      `json:"eol" yaml:"eol"`
	Matching MatchingConfig `json:"matching" yaml:"matching"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Paths    PathsConfig    `json:"paths" yaml:"paths"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Debug    DebugConfig    `json:"debug" yaml:"debug"`
	Secrets  SecretsConfig  `json:"secrets" yaml:"secrets"`
}

// ProviderPattern represents a pattern for inferring provider from model name.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns defines rules for inferring providers from model names.
//
//nolint:gochecknoglobals // Intentional global for inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
}

// GetModelProvider infers the provider for a model name.
func GetModelProvider(modelName string) (string, error) {
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	return "", fmt.Errorf("unknown model '%s': no provider pattern match", modelName)
}

// DefaultModel returns the model used when a provider is chosen without one.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return ModelGPT
	case ProviderGoogle:
		return ModelGemini
	case ProviderOllama:
		return ModelOllama
	default:
		return ModelClaudeSonnet
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(cfg *Config) {
	if cfg.EOL.BaseURL == "" {
		cfg.EOL.BaseURL = defaultEOLBaseURL
	}
	if cfg.EOL.Timeout == 0 {
		cfg.EOL.Timeout = Duration(30 * time.Second)
	}
	if cfg.EOL.MaxAttempts == 0 {
		cfg.EOL.MaxAttempts = 3
	}
	if cfg.EOL.InterCallDelay == 0 {
		cfg.EOL.InterCallDelay = Duration(500 * time.Millisecond)
	}

	if cfg.Matching.Mode == "" {
		cfg.Matching.Mode = ModeAgentic
	}
	if cfg.Matching.ConfidenceThreshold == 0 {
		cfg.Matching.ConfidenceThreshold = 0.7
	}
	if cfg.Matching.MaxIterations == 0 {
		cfg.Matching.MaxIterations = 20
	}

	if cfg.LLM.Provider == "" {
		if inferred, err := GetModelProvider(cfg.LLM.Model); cfg.LLM.Model != "" && err == nil {
			cfg.LLM.Provider = inferred
		} else {
			cfg.LLM.Provider = ProviderAnthropic
		}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4000
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.1
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(120 * time.Second)
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Paths.ReferenceFile == "" {
		cfg.Paths.ReferenceFile = defaultReferenceXLS
	}
	if cfg.Paths.InputFile == "" {
		cfg.Paths.InputFile = defaultInputXLS
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = defaultOutputDir
	}
	if cfg.Paths.Database == "" {
		cfg.Paths.Database = defaultDatabase
	}

	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = defaultMetricsAddr
	}
	if cfg.Debug.LogDir == "" {
		cfg.Debug.LogDir = defaultDebugLogDir
	}
	if cfg.Secrets.File == "" {
		cfg.Secrets.File = DefaultSecretsFile
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string

	switch c.Matching.Mode {
	case ModeAgentic, ModeDirect:
	default:
		problems = append(problems, fmt.Sprintf("matching.mode must be %q or %q, got %q", ModeAgentic, ModeDirect, c.Matching.Mode))
	}
	if c.Matching.ConfidenceThreshold < 0 || c.Matching.ConfidenceThreshold > 1 {
		problems = append(problems, "matching.confidence_threshold must be within [0,1]")
	}
	if c.Matching.MaxIterations < 1 {
		problems = append(problems, "matching.max_iterations must be at least 1")
	}

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
	default:
		problems = append(problems, fmt.Sprintf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.LLM.MaxTokens <= 0 {
		problems = append(problems, "llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be between 0.0 and 2.0")
	}
	if c.LLM.Timeout < 0 {
		problems = append(problems, "llm.timeout must not be negative")
	}
	if c.LLM.MaxRetries < 1 {
		problems = append(problems, "llm.max_retries must be at least 1")
	}

	if c.EOL.BaseURL == "" {
		problems = append(problems, "eol.base_url is required")
	}
	if c.EOL.Timeout <= 0 {
		problems = append(problems, "eol.timeout must be positive")
	}
	if c.EOL.MaxAttempts < 1 {
		problems = append(problems, "eol.max_attempts must be at least 1")
	}
	if c.EOL.InterCallDelay < 0 {
		problems = append(problems, "eol.inter_call_delay must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

//nolint:gochecknoglobals // lazily created package logger
var (
	pkgLogger     *logx.Logger
	pkgLoggerOnce sync.Once
)

func logger() *logx.Logger {
	pkgLoggerOnce.Do(func() { pkgLogger = logx.NewLogger("config") })
	return pkgLogger
}
