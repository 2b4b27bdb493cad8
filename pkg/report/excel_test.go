package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"eolmatch/pkg/eol"
	"eolmatch/pkg/matcher"
)

func readSheet(t *testing.T, path string) (string, [][]string) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	name := f.GetSheetName(0)
	rows, err := f.GetRows(name)
	require.NoError(t, err)
	return name, rows
}

func fixedWriter(dir string) *Writer {
	w := NewWriter(dir, 0.7, nil)
	w.now = func() time.Time { return time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC) }
	return w
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	records := []matcher.MatchRecord{
		{InputName: "Redis 7", MatchedName: "Redis 7", Confidence: 1, Reasoning: "exact"},
		{InputName: "PostGres 14.6", MatchedName: "PostgreSQL 14", Confidence: 0.65, Reasoning: strings.Repeat("long reasoning ", 10),
			Enrichment: &eol.Result{Status: eol.StatusSuccess, Product: "PostgreSQL", Version: "14.6", APIProductName: "postgresql",
				MatchedVersion: "14", MatchType: "MAJOR_VERSION", EOLDate: "2026-11-12", SupportStatus: "active"}},
		{InputName: "Mongo 2.9", MatchedName: "MongoDB 3.0", Confidence: 0.5, Reasoning: "guess",
			Enrichment: &eol.Result{Status: eol.StatusNotFound, Product: "MongoDB", Version: "2.9", ErrorType: "VERSION_NOT_FOUND",
				AvailableVersions: []string{"8.0", "7.0"}}},
		{InputName: "Kafka 3", MatchedName: "Apache Kafka 3", Confidence: 0.6, Reasoning: "family",
			Enrichment: &eol.Result{Status: eol.StatusError, Product: "Kafka", Version: "3", ErrorType: "TIMEOUT", RetryCount: 3}},
		{InputName: "???", MatchedName: matcher.MatchFailed, Reasoning: "Error during matching: boom"},
	}

	paths, err := fixedWriter(dir).WriteAll(records)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, MatchResultsFile),
		filepath.Join(dir, SuccessFile),
		filepath.Join(dir, NotFoundFile),
		filepath.Join(dir, ErrorsFile),
	}, paths)

	name, rows := readSheet(t, paths[0])
	assert.Equal(t, "Match Results", name)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Input Datastore", "Matched Datastore", "Confidence Score", "Reasoning", "Requires EOL Lookup", "Processing Status", "Timestamp"}, rows[0])
	assert.Equal(t, "No", rows[1][4])
	assert.Equal(t, "Yes", rows[2][4])
	assert.Equal(t, "2026-10-18 12:30:00", rows[1][6])
	assert.Equal(t, "Failed", rows[5][5])

	name, rows = readSheet(t, paths[1])
	assert.Equal(t, "API Success", name)
	require.Len(t, rows, 2)
	assert.Equal(t, "PostGres 14.6", rows[1][0])
	assert.Equal(t, "MAJOR_VERSION", rows[1][5])
	assert.Equal(t, "2026-11-12", rows[1][6])

	name, rows = readSheet(t, paths[2])
	assert.Equal(t, "API Not Found", name)
	require.Len(t, rows, 2)
	assert.Equal(t, "VERSION_NOT_FOUND", rows[1][4])
	assert.Equal(t, "8.0, 7.0", rows[1][5])

	name, rows = readSheet(t, paths[3])
	assert.Equal(t, "API Errors", name)
	require.Len(t, rows, 2)
	assert.Equal(t, "TIMEOUT", rows[1][4])
	assert.Equal(t, "3", rows[1][6])
}

func TestWriteAllEmptyBucketsAreHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	paths, err := fixedWriter(dir).WriteAll(nil)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, p := range paths {
		_, rows := readSheet(t, p)
		assert.Len(t, rows, 1, p)
	}
}

func TestColumnWidths(t *testing.T) {
	dir := t.TempDir()
	records := []matcher.MatchRecord{
		{InputName: "Redis 7", MatchedName: "Redis 7", Confidence: 1, Reasoning: strings.Repeat("x", 200)},
	}
	paths, err := fixedWriter(dir).WriteAll(records)
	require.NoError(t, err)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	width, err := f.GetColWidth("Match Results", "D")
	require.NoError(t, err)
	assert.InDelta(t, 50, width, 0.01, "long columns are capped")

	width, err = f.GetColWidth("Match Results", "A")
	require.NoError(t, err)
	assert.InDelta(t, float64(len("Input Datastore")+2), width, 0.01)
}

func TestColumnWidth(t *testing.T) {
	rows := [][]any{{"abc", 0.65}, {"abcdefgh"}}
	assert.InDelta(t, 10, columnWidth("ab", rows, 0), 0.01)
	assert.InDelta(t, 6, columnWidth("Conf", rows, 1), 0.01)
	assert.InDelta(t, 50, columnWidth(strings.Repeat("h", 60), nil, 0), 0.01)
}
