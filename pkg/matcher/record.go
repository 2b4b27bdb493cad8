// Package matcher matches input datastore names against the reference list,
// either by letting the model drive the tools (agentic) or with one prompt per
// item (direct), and runs the end-to-end pipeline around those modes.
package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"eolmatch/pkg/eol"
	"eolmatch/pkg/logx"
)

// Sentinel matched names.
const (
	NotFound    = "NOT FOUND"
	MatchFailed = "ERROR"
)

// MatchRecord is the final answer for one input item.
type MatchRecord struct {
	InputName   string      `json:"input_datastore"`
	MatchedName string      `json:"matched_datastore"`
	Confidence  float64     `json:"confidence"`
	Reasoning   string      `json:"reasoning"`
	Enrichment  *eol.Result `json:"eol_data,omitempty"`
}

// NeedsLookup reports whether the match is below threshold.
func (r *MatchRecord) NeedsLookup(threshold float64) bool {
	return r.Confidence < threshold
}

// ParseRecords decodes a model's final answer into records. Fields are read
// leniently: confidence may be a number or a numeric string and is clamped to
// [0,1]; eol_data is kept only when it is an object. Elements that are not
// objects or lack input_datastore are skipped and logged; only an answer that
// is not a JSON array is an error. logger may be nil.
func ParseRecords(text string, logger *logx.Logger) ([]MatchRecord, error) {
	items, err := ExtractArray(text)
	if err != nil {
		return nil, err
	}

	records := make([]MatchRecord, 0, len(items))
	for i, raw := range items {
		res := gjson.ParseBytes(raw)
		if !res.IsObject() {
			warnSkipped(logger, i, ErrNotObject)
			continue
		}
		rec, err := recordFrom(res)
		if err != nil {
			warnSkipped(logger, i, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func warnSkipped(logger *logx.Logger, index int, err error) {
	if logger != nil {
		logger.Warn("Skipping answer element %d: %v", index, err)
	}
}

func recordFrom(res gjson.Result) (MatchRecord, error) {
	if !res.Get("input_datastore").Exists() {
		return MatchRecord{}, fmt.Errorf("%w: input_datastore", ErrMissingField)
	}
	rec := MatchRecord{
		InputName:   strings.TrimSpace(res.Get("input_datastore").String()),
		MatchedName: strings.TrimSpace(res.Get("matched_datastore").String()),
		Confidence:  clamp(res.Get("confidence").Float()),
		Reasoning:   res.Get("reasoning").String(),
	}
	if eolData := res.Get("eol_data"); eolData.IsObject() {
		if enrichment := enrichmentFrom(eolData); enrichment.Status != "" {
			rec.Enrichment = &enrichment
		}
	}
	return rec, nil
}

// enrichmentFrom reads a lookup envelope echoed back by the model.
func enrichmentFrom(res gjson.Result) eol.Result {
	out := eol.Result{
		Status:         eol.Status(res.Get("status").String()),
		Product:        res.Get("product").String(),
		Version:        res.Get("version").String(),
		APIProductName: res.Get("api_product_name").String(),
		MatchedVersion: res.Get("matched_version").String(),
		MatchType:      res.Get("match_type").String(),
		EOLDate:        res.Get("eol_date").String(),
		SupportStatus:  res.Get("support_status").String(),
		LatestVersion:  res.Get("latest_version").String(),
		LTSVersion:     res.Get("lts_version").String(),
		ReleaseDate:    res.Get("release_date").String(),
		ErrorType:      res.Get("error_type").String(),
		ErrorMessage:   res.Get("error_message").String(),
		RetryCount:     int(res.Get("retry_count").Int()),
		StatusCode:     int(res.Get("status_code").Int()),
	}
	for _, v := range res.Get("available_versions").Array() {
		out.AvailableVersions = append(out.AvailableVersions, v.String())
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
