package agent

import (
	"fmt"
	"net/http"
	"time"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"eolmatch/pkg/agent/internal/llmimpl/anthropic"
	"eolmatch/pkg/agent/internal/llmimpl/google"
	"eolmatch/pkg/agent/internal/llmimpl/ollama"
	"eolmatch/pkg/agent/internal/llmimpl/openaiofficial"
	"eolmatch/pkg/agent/llm"
	"eolmatch/pkg/agent/middleware/metrics"
	"eolmatch/pkg/agent/middleware/resilience/retry"
	"eolmatch/pkg/agent/middleware/resilience/timeout"
	"eolmatch/pkg/agent/middleware/validation"
	"eolmatch/pkg/agent/msg"
	"eolmatch/pkg/backoff"
	"eolmatch/pkg/config"
	"eolmatch/pkg/logx"
)

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config   config.LLMConfig
	recorder metrics.Recorder
	sleeper  backoff.Sleeper
	logger   *logx.Logger
	mode     string
}

// FactoryOption customizes a factory.
type FactoryOption func(*LLMClientFactory)

// WithSleeper replaces the real sleeper used between LLM retries.
func WithSleeper(s backoff.Sleeper) FactoryOption {
	return func(f *LLMClientFactory) { f.sleeper = s }
}

// WithLogger sets the logger handed to the middlewares.
func WithLogger(l *logx.Logger) FactoryOption {
	return func(f *LLMClientFactory) { f.logger = l }
}

// NewLLMClientFactory creates a factory for cfg. mode labels metrics ("agentic" or "direct").
// A nil recorder disables metrics.
func NewLLMClientFactory(cfg config.LLMConfig, mode string, recorder metrics.Recorder, opts ...FactoryOption) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	f := &LLMClientFactory{
		config:   cfg,
		recorder: recorder,
		sleeper:  backoff.Real(),
		logger:   logx.NewLogger("llm"),
		mode:     mode,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateClient creates the provider client named by the configuration, with the full middleware chain.
// The API key is looked up per provider from secrets or the environment.
func (f *LLMClientFactory) CreateClient() (llm.LLMClient, error) {
	raw, err := f.newRawClient()
	if err != nil {
		return nil, err
	}
	return f.Wrap(raw), nil
}

// Wrap applies the middleware chain to an existing client.
func (f *LLMClientFactory) Wrap(raw llm.LLMClient) llm.LLMClient {
	retryConfig := retry.DefaultConfig
	retryConfig.MaxAttempts = f.config.MaxRetries + 1
	retryPolicy := retry.NewPolicy(retryConfig, nil)
	retryPolicy.Sleeper = f.sleeper

	// Metrics -> RequestValidation -> Retry -> EmptyResponse -> Timeout -> RawClient
	return llm.Chain(raw,
		metrics.Middleware(f.recorder, nil, f.mode, f.logger),
		msg.Middleware(),
		retry.Middleware(retryPolicy, f.logger),
		validation.NewEmptyResponseValidator(f.logger).Middleware(),
		timeout.Middleware(f.config.Timeout.Std()),
	)
}

func (f *LLMClientFactory) newRawClient() (llm.LLMClient, error) {
	provider := f.config.Provider
	if provider == "" {
		inferred, err := config.GetModelProvider(f.config.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to determine provider for model %s: %w", f.config.Model, err)
		}
		provider = inferred
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	model := f.config.Model
	if model == "" {
		model = config.DefaultModel(provider)
	}

	switch provider {
	case config.ProviderAnthropic:
		var opts []anthropicopt.RequestOption
		if f.config.BaseURL != "" {
			opts = append(opts, anthropicopt.WithBaseURL(f.config.BaseURL))
		}
		return anthropic.NewClaudeClient(apiKey, model, opts...), nil
	case config.ProviderOpenAI:
		var opts []openaiopt.RequestOption
		if f.config.BaseURL != "" {
			opts = append(opts, openaiopt.WithBaseURL(f.config.BaseURL))
		}
		return openaiofficial.NewOfficialClient(apiKey, model, opts...), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model, f.config.BaseURL), nil
	case config.ProviderOllama:
		host := apiKey
		if f.config.BaseURL != "" {
			host = f.config.BaseURL
		}
		httpClient := &http.Client{Timeout: f.config.Timeout.Std() + 30*time.Second}
		return ollama.NewOllamaClientWithModel(host, model, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
