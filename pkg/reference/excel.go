// Package reference loads the canonical datastore reference list and caches it per run.
package reference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrFileNotFound is returned when a workbook path does not exist.
var ErrFileNotFound = errors.New("file not found")

// Source supplies the reference candidate list.
type Source interface {
	Load(ctx context.Context) ([]string, error)
}

// ExcelSource reads the reference list from the "Datastore" column of the first
// sheet of a workbook, falling back to "datastore" and then to the first column.
type ExcelSource struct {
	Path string
}

// NewExcelSource creates a Source backed by the workbook at path.
func NewExcelSource(path string) *ExcelSource {
	return &ExcelSource{Path: path}
}

// Load returns the trimmed, de-duplicated, sorted reference names.
func (s *ExcelSource) Load(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // cancellation passes through
	}
	values, err := ReadColumn(s.Path, "Datastore", "datastore")
	if err != nil {
		return nil, err
	}
	return Canonicalize(values), nil
}

// ReadColumn returns the non-empty, trimmed cells below the header row of the
// first header in preferred that exists, or of the first column when none match.
func ReadColumn(path string, preferred ...string) ([]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := pickColumn(rows[0], preferred)
	values := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

func pickColumn(header, preferred []string) int {
	for _, name := range preferred {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
	}
	return 0
}

// Canonicalize trims, drops empties, de-duplicates and sorts names.
func Canonicalize(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
