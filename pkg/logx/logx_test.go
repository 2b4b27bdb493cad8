package logx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLoggerWithWriter(component, &buf), &buf
}

func withDebug(t *testing.T, enabled, file bool, dir string, domains ...string) {
	t.Helper()
	debugMutex.RLock()
	saved := *debugConfig
	debugMutex.RUnlock()
	t.Cleanup(func() {
		debugMutex.Lock()
		*debugConfig = saved
		debugMutex.Unlock()
	})
	SetDebugConfig(enabled, file, dir)
	SetDebugDomains(domains)
}

func TestLoggerLineFormat(t *testing.T) {
	logger, buf := setupTestLogger("eol")

	logger.Info("fetched %d releases", 12)
	logger.Warn("slow")
	logger.Error("boom: %s", "x")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[eol] INFO: fetched 12 releases")
	assert.Contains(t, lines[1], "[eol] WARN: slow")
	assert.Contains(t, lines[2], "[eol] ERROR: boom: x")
	assert.True(t, strings.HasPrefix(lines[0], "["))
	assert.True(t, strings.Contains(lines[0], "Z] "), "timestamp should be UTC")
}

func TestDebugDisabledByDefault(t *testing.T) {
	withDebug(t, false, false, "")
	logger, buf := setupTestLogger("toolloop")

	logger.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestDebugDomainFiltering(t *testing.T) {
	withDebug(t, true, false, "", "eol")

	assert.True(t, IsDebugEnabledForDomain("eol"))
	assert.False(t, IsDebugEnabledForDomain("toolloop"))

	eolLogger, eolBuf := setupTestLogger("eol")
	loopLogger, loopBuf := setupTestLogger("toolloop")
	eolLogger.Debug("visible")
	loopLogger.Debug("hidden")

	assert.Contains(t, eolBuf.String(), "DEBUG: visible")
	assert.Empty(t, loopBuf.String())
}

func TestDebugFileLogging(t *testing.T) {
	dir := t.TempDir()
	withDebug(t, true, true, dir)

	ctx := WithRunID(context.Background(), "run-1")
	Debug(ctx, "matcher", "item %d", 3)

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[run-1] DEBUG: [matcher] item 3")
}

func TestRunIDRoundTrip(t *testing.T) {
	assert.Empty(t, RunID(context.Background()))
	assert.Equal(t, "abc", RunID(WithRunID(context.Background(), "abc")))
}

func TestWithComponentSharesOutput(t *testing.T) {
	logger, buf := setupTestLogger("cli")
	logger.WithComponent("report").Info("written")

	assert.Contains(t, buf.String(), "[report] INFO: written")
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "noop"))

	base := errors.New("disk full")
	err := Wrap(base, "write report")
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "write report: disk full", err.Error())
}
