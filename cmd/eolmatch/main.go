// Command eolmatch matches free-form datastore names against a reference list
// with an LLM and enriches low-confidence matches with end-of-life data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eolmatch/pkg/agent"
	"eolmatch/pkg/agent/llm"
	llmmetrics "eolmatch/pkg/agent/middleware/metrics"
	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/config"
	"eolmatch/pkg/eol"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/matcher"
	"eolmatch/pkg/metrics"
	"eolmatch/pkg/persistence"
	"eolmatch/pkg/reference"
	"eolmatch/pkg/report"
	"eolmatch/pkg/tools"
	"eolmatch/pkg/version"
)

// Exit codes.
const (
	exitComplete   = 0
	exitError      = 1
	exitIncomplete = 2
)

// cliFlags holds command-line overrides. Zero values leave the config alone.
type cliFlags struct {
	configPath    string
	input         string
	reference     string
	output        string
	mode          string
	provider      string
	model         string
	maxIterations int
	showVersion   bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "Path to config file (YAML or JSON)")
	fs.StringVar(&f.input, "input", "", "Input workbook with datastore names")
	fs.StringVar(&f.reference, "reference", "", "Reference workbook with canonical datastore names")
	fs.StringVar(&f.output, "output", "", "Output directory for reports")
	fs.StringVar(&f.mode, "mode", "", "Matching mode: agentic or direct")
	fs.StringVar(&f.provider, "provider", "", "LLM provider: anthropic, openai, google or ollama")
	fs.StringVar(&f.model, "model", "", "LLM model name")
	fs.IntVar(&f.maxIterations, "max-iterations", 0, "Maximum agentic loop iterations")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return f, nil
}

func main() {
	flags, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
	if flags.showVersion {
		fmt.Println(version.String())
		os.Exit(exitComplete)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, flags)
	cancel()
	os.Exit(code)
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(ctx context.Context, flags *cliFlags) int {
	logger := logx.NewLogger("main")

	cfg, err := config.LoadConfig(config.ResolvePath(flags.configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitError
	}
	if err := applyFlags(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid flags: %v\n", err)
		return exitError
	}
	logx.SetDebugConfig(cfg.Debug.Enabled, cfg.Debug.LogFile, cfg.Debug.LogDir)
	logx.SetDebugDomains(cfg.Debug.Domains)

	if err := unlockSecrets(cfg.Secrets.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unlock secrets: %v\n", err)
		return exitError
	}
	if err := ensureAPIKey(cfg.LLM.Provider); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitError
	}

	internal := llmmetrics.NewInternalRecorder()
	var recorder llmmetrics.Recorder = internal
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		recorder = llmmetrics.Tee(internal, llmmetrics.NewPrometheusRecorder(reg))
		srv := serveMetrics(cfg.Metrics.ListenAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	client, err := agent.NewLLMClientFactory(cfg.LLM, cfg.Matching.Mode, recorder).CreateClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create LLM client: %v\n", err)
		return exitError
	}

	cache := reference.NewCache(reference.NewExcelSource(cfg.Paths.ReferenceFile), nil)
	eolClient := eol.NewClient(cfg.EOL.BaseURL, cfg.EOL.Timeout.Std(), cfg.EOL.MaxAttempts)
	lookups := eol.NewService(eolClient, cfg.EOL.InterCallDelay.Std(), nil, nil)
	registry, err := tools.NewDefaultRegistry(cache, lookups, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register tools: %v\n", err)
		return exitError
	}

	pipeline := &matcher.Pipeline{
		Runner:  newRunner(cfg, client, cache, registry),
		Reports: report.NewWriter(cfg.Paths.OutputDir, cfg.Matching.ConfidenceThreshold, nil),
		Out:     os.Stdout,
		Logger:  logger,
	}

	store, err := openStore(cfg.Paths.Database)
	if err != nil {
		logger.Warn("Run history disabled: %v", err)
	} else {
		defer func() { _ = store.Close() }()
		pipeline.Store = store
	}

	fmt.Printf("⏳ Matching with %s (%s mode)\n", client.GetModelName(), cfg.Matching.Mode)
	result, err := pipeline.Run(ctx, cfg.Paths.InputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		return exitError
	}

	printUsage(ctx, cfg, internal, result.RunID)
	return exitCode(result.Result.Status)
}

func newRunner(cfg *config.Config, client llm.LLMClient, cache *reference.Cache, registry *tools.Registry) matcher.Runner {
	opts := matcher.Options{
		ConfidenceThreshold: cfg.Matching.ConfidenceThreshold,
		MaxIterations:       cfg.Matching.MaxIterations,
		MaxTokens:           cfg.LLM.MaxTokens,
		Temperature:         cfg.LLM.Temperature,
		InterCallDelay:      cfg.EOL.InterCallDelay.Std(),
		DebugLogging:        cfg.Debug.Enabled,
	}
	if cfg.Matching.Mode == config.ModeDirect {
		return matcher.NewDirect(client, cache, registry, nil, opts, nil)
	}
	return matcher.NewAgentic(client, registry, opts, nil)
}

// applyFlags overlays command-line values and re-validates.
func applyFlags(cfg *config.Config, f *cliFlags) error {
	if f.input != "" {
		cfg.Paths.InputFile = f.input
	}
	if f.reference != "" {
		cfg.Paths.ReferenceFile = f.reference
	}
	if f.output != "" {
		cfg.Paths.OutputDir = f.output
	}
	if f.mode != "" {
		cfg.Matching.Mode = f.mode
	}
	if f.maxIterations > 0 {
		cfg.Matching.MaxIterations = f.maxIterations
	}

	switch {
	case f.provider != "" && f.model != "":
		cfg.LLM.Provider, cfg.LLM.Model = f.provider, f.model
	case f.provider != "":
		if f.provider != cfg.LLM.Provider {
			cfg.LLM.Provider = f.provider
			cfg.LLM.Model = config.DefaultModel(f.provider)
		}
	case f.model != "":
		provider, err := config.GetModelProvider(f.model)
		if err != nil {
			return fmt.Errorf("-model %s: %w", f.model, err)
		}
		cfg.LLM.Provider, cfg.LLM.Model = provider, f.model
	}

	return cfg.Validate()
}

func exitCode(status toolloop.Status) int {
	switch status {
	case toolloop.StatusComplete:
		return exitComplete
	case toolloop.StatusIncomplete:
		return exitIncomplete
	default:
		return exitError
	}
}

func openStore(path string) (*persistence.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	store, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	return store, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *logx.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped: %v", err)
		}
	}()
	logger.Info("📊 Serving metrics on %s/metrics", addr)
	return srv
}

// printUsage reports the run's token usage, preferring Prometheus when configured.
func printUsage(ctx context.Context, cfg *config.Config, internal *llmmetrics.InternalRecorder, runID string) {
	if cfg.Metrics.PrometheusURL != "" {
		qs, err := metrics.NewQueryService(cfg.Metrics.PrometheusURL)
		if err == nil {
			queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if m, qerr := qs.GetRunMetrics(queryCtx, runID); qerr == nil {
				fmt.Printf("LLM usage: %d requests (%d failed), %d tokens (%d prompt, %d completion)\n",
					m.Requests, m.FailedRequests, m.TotalTokens, m.PromptTokens, m.CompletionTokens)
				return
			}
		}
	}
	if m := internal.GetRunMetrics(runID); m != nil {
		fmt.Printf("LLM usage: %d requests (%d failed), ~%d tokens (%d prompt, %d completion)\n",
			m.RequestCount, m.ErrorCount, m.TotalTokens, m.PromptTokens, m.CompletionTokens)
	}
}
