package matcher

import (
	"fmt"
	"io"
	"strings"

	"eolmatch/pkg/eol"
)

// Confidence bucket bounds.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.6
)

// Summary counts records by confidence and enrichment outcome.
type Summary struct {
	Total          int
	High           int
	Medium         int
	Low            int
	WithEnrichment int
	LookupSuccess  int
	LookupNotFound int
	LookupErrors   int
}

// Summarize buckets records: high >= 0.8, medium in [0.6, 0.8), low < 0.6.
func Summarize(records []MatchRecord) Summary {
	s := Summary{Total: len(records)}
	for i := range records {
		r := &records[i]
		switch {
		case r.Confidence >= HighConfidence:
			s.High++
		case r.Confidence >= MediumConfidence:
			s.Medium++
		default:
			s.Low++
		}
		if r.Enrichment == nil {
			continue
		}
		s.WithEnrichment++
		switch r.Enrichment.Status {
		case eol.StatusSuccess:
			s.LookupSuccess++
		case eol.StatusNotFound:
			s.LookupNotFound++
		case eol.StatusError:
			s.LookupErrors++
		}
	}
	return s
}

// Print writes the summary block shown at the end of a run.
func (s Summary) Print(w io.Writer) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(w, "\n%s\nPROCESSING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "\nMATCHING RESULTS:\n")
	fmt.Fprintf(w, "  Total datastores processed: %d\n", s.Total)
	fmt.Fprintf(w, "  High confidence (>=0.8): %d\n", s.High)
	fmt.Fprintf(w, "  Medium confidence (0.6-0.8): %d\n", s.Medium)
	fmt.Fprintf(w, "  Low confidence (<0.6): %d\n", s.Low)
	fmt.Fprintf(w, "\nEOL ENRICHMENT:\n")
	fmt.Fprintf(w, "  Datastores with EOL data: %d\n", s.WithEnrichment)
	fmt.Fprintf(w, "  Lookup success: %d, not found: %d, errors: %d\n", s.LookupSuccess, s.LookupNotFound, s.LookupErrors)
	fmt.Fprintf(w, "\n%s\n", rule)
}
