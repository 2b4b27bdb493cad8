// Package report writes match results and lookup outcomes to Excel workbooks.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"eolmatch/pkg/eol"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/matcher"
)

// Output file names.
const (
	MatchResultsFile = "datastore_match_results.xlsx"
	SuccessFile      = "api_success.xlsx"
	NotFoundFile     = "api_not_found.xlsx"
	ErrorsFile       = "api_errors.xlsx"
)

const (
	headerColor   = "4472C4"
	maxColWidth   = 50
	timestampForm = "2006-01-02 15:04:05"
)

// Writer writes the four output workbooks into one directory.
type Writer struct {
	dir       string
	threshold float64
	logger    *logx.Logger
	now       func() time.Time
}

var _ matcher.ReportWriter = (*Writer)(nil)

// NewWriter creates a writer for dir. Records with confidence below threshold
// are flagged as requiring a lookup.
func NewWriter(dir string, threshold float64, logger *logx.Logger) *Writer {
	if logger == nil {
		logger = logx.NewLogger("report")
	}
	return &Writer{dir: dir, threshold: threshold, logger: logger, now: time.Now}
}

// WriteAll writes every workbook and returns the paths written. Buckets with no
// rows still get a header-only workbook.
func (w *Writer) WriteAll(records []matcher.MatchRecord) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", w.dir, err)
	}

	var success, notFound, failed []matcher.MatchRecord
	for i := range records {
		if records[i].Enrichment == nil {
			continue
		}
		switch records[i].Enrichment.Status {
		case eol.StatusSuccess:
			success = append(success, records[i])
		case eol.StatusNotFound:
			notFound = append(notFound, records[i])
		case eol.StatusError:
			failed = append(failed, records[i])
		}
	}

	sheets := []sheet{
		w.matchSheet(records),
		successSheet(success),
		notFoundSheet(notFound),
		w.errorSheet(failed),
	}

	paths := make([]string, 0, len(sheets))
	for i := range sheets {
		path := filepath.Join(w.dir, sheets[i].file)
		if err := sheets[i].save(path); err != nil {
			return paths, err
		}
		w.logger.Info("Wrote %d rows to %s", len(sheets[i].rows), path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) matchSheet(records []matcher.MatchRecord) sheet {
	s := sheet{
		file: MatchResultsFile,
		name: "Match Results",
		header: []string{
			"Input Datastore", "Matched Datastore", "Confidence Score", "Reasoning",
			"Requires EOL Lookup", "Processing Status", "Timestamp",
		},
	}
	stamp := w.now().Format(timestampForm)
	for i := range records {
		r := &records[i]
		lookup := "No"
		if r.NeedsLookup(w.threshold) {
			lookup = "Yes"
		}
		status := "Completed"
		if r.MatchedName == matcher.MatchFailed {
			status = "Failed"
		}
		s.rows = append(s.rows, []any{r.InputName, r.MatchedName, r.Confidence, r.Reasoning, lookup, status, stamp})
	}
	return s
}

func successSheet(records []matcher.MatchRecord) sheet {
	s := sheet{
		file: SuccessFile,
		name: "API Success",
		header: []string{
			"Input Datastore", "Product", "Version", "API Product Name", "API Matched Version",
			"Match Type", "EOL Date", "Support Status", "Latest Version", "LTS Version", "Release Date",
		},
	}
	for i := range records {
		e := records[i].Enrichment
		s.rows = append(s.rows, []any{
			records[i].InputName, e.Product, e.Version, e.APIProductName, e.MatchedVersion,
			e.MatchType, e.EOLDate, e.SupportStatus, e.LatestVersion, e.LTSVersion, e.ReleaseDate,
		})
	}
	return s
}

func notFoundSheet(records []matcher.MatchRecord) sheet {
	s := sheet{
		file: NotFoundFile,
		name: "API Not Found",
		header: []string{
			"Input Datastore", "Product", "Version", "API Product Name",
			"Not Found Type", "Available Versions", "Error Message",
		},
	}
	for i := range records {
		e := records[i].Enrichment
		s.rows = append(s.rows, []any{
			records[i].InputName, e.Product, e.Version, e.APIProductName,
			e.ErrorType, strings.Join(e.AvailableVersions, ", "), e.ErrorMessage,
		})
	}
	return s
}

func (w *Writer) errorSheet(records []matcher.MatchRecord) sheet {
	s := sheet{
		file: ErrorsFile,
		name: "API Errors",
		header: []string{
			"Input Datastore", "Product", "Version", "API Product Name",
			"Error Type", "Error Details", "Retry Count", "Timestamp",
		},
	}
	stamp := w.now().Format(timestampForm)
	for i := range records {
		e := records[i].Enrichment
		s.rows = append(s.rows, []any{
			records[i].InputName, e.Product, e.Version, e.APIProductName,
			e.ErrorType, e.ErrorMessage, e.RetryCount, stamp,
		})
	}
	return s
}

// sheet is one single-sheet workbook.
type sheet struct {
	file   string
	name   string
	header []string
	rows   [][]any
}

func (s *sheet) save(path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", s.file, err)
	}
	for i := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d of %s: %w", i, s.file, err)
		}
		if err := f.SetSheetRow(s.name, cell, &s.rows[i]); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i, s.file, err)
		}
	}

	if err := s.format(f); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func (s *sheet) format(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(s.name, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for col := range s.header {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("column %d: %w", col+1, err)
		}
		if err := f.SetColWidth(s.name, name, name, columnWidth(s.header[col], s.rows, col)); err != nil {
			return fmt.Errorf("set width of column %s: %w", name, err)
		}
	}
	return nil
}

// columnWidth is the longest rendered value plus padding, capped.
func columnWidth(header string, rows [][]any, col int) float64 {
	longest := len([]rune(header))
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if n := len([]rune(fmt.Sprint(row[col]))); n > longest {
			longest = n
		}
	}
	return float64(min(longest+2, maxColWidth))
}
