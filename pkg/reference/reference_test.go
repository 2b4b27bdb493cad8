package reference

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), "ref.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelSourcePrefersDatastoreColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Owner", "Datastore"},
		{"team-a", " PostgreSQL 14 "},
		{"team-b", "MySQL 8.0"},
		{"team-c", ""},
		{"team-d", "PostgreSQL 14"},
		{"team-e", "Aurora"},
	})

	list, err := NewExcelSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Aurora", "MySQL 8.0", "PostgreSQL 14"}, list)
}

func TestExcelSourceLowercaseHeader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"id", "datastore"},
		{"1", "Redis"},
	})

	list, err := NewExcelSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Redis"}, list)
}

func TestReadColumnFallsBackToFirstColumn(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Name", "Notes"},
		{"Kafka", "x"},
		{"  ", "y"},
		{"Kafka", "z"},
	})

	values, err := ReadColumn(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kafka", "Kafka"}, values)
}

func TestReadColumnMissingFile(t *testing.T) {
	_, err := ReadColumn(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Canonicalize([]string{" b", "a", "", "b ", "a"}))
	assert.Empty(t, Canonicalize(nil))
}

type countingSource struct {
	err   error
	list  []string
	calls int
}

func (s *countingSource) Load(context.Context) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

func TestCacheLoadsOnce(t *testing.T) {
	src := &countingSource{list: []string{"A", "B"}}
	cache := NewCache(src, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)

	first[0] = "mutated"
	third, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", third[0], "callers must not be able to mutate the cache")
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	src := &countingSource{err: errors.New("locked")}
	cache := NewCache(src, nil)

	_, err := cache.Get(context.Background())
	require.Error(t, err)

	src.err = nil
	src.list = []string{"X"}
	list, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, list)
	assert.Equal(t, 2, src.calls)
}

func TestCacheInvalidate(t *testing.T) {
	src := &countingSource{list: []string{"A"}}
	cache := NewCache(src, nil)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	src.list = []string{"B"}

	list, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, list)
	assert.Equal(t, 2, src.calls)
}
