package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/config"
)

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("eolmatch", flag.ContinueOnError)
	f, err := parseFlags(fs, []string{"-input", "in.xlsx", "-mode", "direct", "-max-iterations", "7", "-version"})
	require.NoError(t, err)
	assert.Equal(t, "in.xlsx", f.input)
	assert.Equal(t, "direct", f.mode)
	assert.Equal(t, 7, f.maxIterations)
	assert.True(t, f.showVersion)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	err := applyFlags(cfg, &cliFlags{
		input:         "in.xlsx",
		reference:     "ref.xlsx",
		output:        "out",
		mode:          config.ModeDirect,
		provider:      config.ProviderOpenAI,
		maxIterations: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "in.xlsx", cfg.Paths.InputFile)
	assert.Equal(t, "ref.xlsx", cfg.Paths.ReferenceFile)
	assert.Equal(t, "out", cfg.Paths.OutputDir)
	assert.Equal(t, config.ModeDirect, cfg.Matching.Mode)
	assert.Equal(t, 5, cfg.Matching.MaxIterations)
	assert.Equal(t, config.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, config.DefaultModel(config.ProviderOpenAI), cfg.LLM.Model, "switching provider picks its default model")
}

func TestApplyFlagsModelInfersProvider(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyFlags(cfg, &cliFlags{model: config.ModelGemini}))
	assert.Equal(t, config.ProviderGoogle, cfg.LLM.Provider)
	assert.Equal(t, config.ModelGemini, cfg.LLM.Model)
}

func TestApplyFlagsRejectsBadMode(t *testing.T) {
	cfg := config.Default()
	assert.Error(t, applyFlags(cfg, &cliFlags{mode: "batch"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitComplete, exitCode(toolloop.StatusComplete))
	assert.Equal(t, exitIncomplete, exitCode(toolloop.StatusIncomplete))
	assert.Equal(t, exitError, exitCode(toolloop.StatusError))
}
