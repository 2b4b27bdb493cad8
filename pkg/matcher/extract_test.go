package matcher

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"eolmatch/pkg/agent/toolloop"
	"eolmatch/pkg/eol"
	"eolmatch/pkg/logx"
)

func TestPayload(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"json fence", "Here you go:\n```json\n[1, 2]\n```\nDone.", "[1, 2]"},
		{"json fence preferred over plain", "```\nnope\n```\n```json\n[3]\n```", "[3]"},
		{"plain fence", "```\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"plain fence with tag", "```JSON\n[4]\n```", "[4]"},
		{"plain fence inline", "```[5]```", "[5]"},
		{"unclosed fence", "```json\n[6]", "[6]"},
		{"raw", "  [7]  ", "[7]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Payload(tt.text))
		})
	}
}

func TestExtractArrayReturnsExactElements(t *testing.T) {
	text := "Results:\n```json\n[{\"input_datastore\": \"MySQL 8\", \"confidence\": 0.9}, 42]\n```"
	items, err := ExtractArray(text)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"input_datastore": "MySQL 8", "confidence": 0.9}`, string(items[0]))
	assert.Equal(t, json.RawMessage("42"), items[1])
}

func TestExtractArrayErrors(t *testing.T) {
	_, err := ExtractArray("I think PostgreSQL matches")
	assert.ErrorIs(t, err, ErrMalformedAnswer)
	assert.ErrorIs(t, err, toolloop.ErrInvalidResult)

	_, err = ExtractArray("```json\n{\"a\": 1}\n```")
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ExtractArray("null")
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestExtractObject(t *testing.T) {
	obj, err := ExtractObject("```json\n{\"matched_datastore\": \"Redis 7\"}\n```")
	require.NoError(t, err)
	assert.JSONEq(t, `{"matched_datastore": "Redis 7"}`, string(obj))

	_, err = ExtractObject("[1]")
	assert.ErrorIs(t, err, ErrNotObject)
	_, err = ExtractObject("{broken")
	assert.ErrorIs(t, err, ErrMalformedAnswer)
}

func TestParseRecords(t *testing.T) {
	text := "```json\n" + `[
  {"input_datastore": "PostGres 14", "matched_datastore": "PostgreSQL 14", "confidence": "0.9", "reasoning": "typo"},
  {"input_datastore": "Oracle 19c", "matched_datastore": "Oracle 19", "confidence": 1.7, "reasoning": "x", "eol_data": null},
  {"input_datastore": "MySQL 5.7.x-log", "matched_datastore": "MySQL 5.7", "confidence": -1, "reasoning": "y",
   "eol_data": {"status": "success", "product": "MySQL", "eol_date": "2023-10-31", "retry_count": "0", "available_versions": ["8.0", "5.7"]}}
]` + "\n```"

	records, err := ParseRecords(text, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "PostGres 14", records[0].InputName)
	assert.InDelta(t, 0.9, records[0].Confidence, 1e-9)
	assert.Nil(t, records[0].Enrichment)

	assert.InDelta(t, 1.0, records[1].Confidence, 1e-9)
	assert.Nil(t, records[1].Enrichment)

	assert.InDelta(t, 0.0, records[2].Confidence, 1e-9)
	require.NotNil(t, records[2].Enrichment)
	assert.Equal(t, eol.StatusSuccess, records[2].Enrichment.Status)
	assert.Equal(t, "2023-10-31", records[2].Enrichment.EOLDate)
	assert.Equal(t, []string{"8.0", "5.7"}, records[2].Enrichment.AvailableVersions)
}

func TestParseRecordsSkipsMalformedElements(t *testing.T) {
	text := "```json\n" + `[
  {"input_datastore": "PG 14", "matched_datastore": "PostgreSQL 14", "confidence": 0.9, "reasoning": "abbrev"},
  {"matched_datastore": "MySQL 8", "confidence": 0.8},
  "just a string",
  {"input_datastore": "Redis 7", "matched_datastore": "Redis 7", "confidence": 1}
]` + "\n```"

	records, err := ParseRecords(text, logx.NewLogger("test"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "PG 14", records[0].InputName)
	assert.Equal(t, "Redis 7", records[1].InputName)

	records, err = ParseRecords(`["just a string"]`, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseRecordsNonArrayIsError(t *testing.T) {
	_, err := ParseRecords(`{"input_datastore": "PG 14"}`, nil)
	assert.ErrorIs(t, err, ErrNotArray)
	assert.True(t, errors.Is(err, toolloop.ErrInvalidResult))
}

func TestRecordFromMissingInputIsMissingField(t *testing.T) {
	_, err := recordFrom(gjson.Parse(`{"matched_datastore": "x"}`))
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorIs(t, err, toolloop.ErrInvalidResult)
	assert.NotErrorIs(t, err, ErrMalformedAnswer)
}

func TestParseRecordsClampsNonFiniteConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		want       float64
	}{
		{"NaN string", `"NaN"`, 0},
		{"lowercase nan", `"nan"`, 0},
		{"Infinity", `"Infinity"`, 1},
		{"negative Infinity", `"-Infinity"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := `[{"input_datastore": "a", "matched_datastore": "b", "confidence": ` + tt.confidence + `}]`
			records, err := ParseRecords(text, nil)
			require.NoError(t, err)
			require.Len(t, records, 1)
			c := records[0].Confidence
			assert.False(t, math.IsNaN(c))
			assert.InDelta(t, tt.want, c, 1e-9)
		})
	}
}

func TestParseDirectClampsNaN(t *testing.T) {
	rec, err := parseDirect("a", `{"matched_datastore": "b", "confidence": "nan", "reasoning": "r"}`)
	require.NoError(t, err)
	assert.Equal(t, "b", rec.MatchedName)
	assert.False(t, math.IsNaN(rec.Confidence))
	assert.Zero(t, rec.Confidence)
	assert.True(t, rec.NeedsLookup(0.7))
}

func TestParseDirectMissingFields(t *testing.T) {
	rec, err := parseDirect("a", `{"reasoning": "unsure"}`)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Equal(t, NotFound, rec.MatchedName)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "ab" + "\u00e9\u00e9\u00e9"
	out := truncate(s, 3)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "ab...", out)
	assert.Equal(t, "ab\u00e9...", truncate(s, 4))
	assert.Equal(t, s, truncate(s, len(s)))
}

func TestSplitNameVersion(t *testing.T) {
	tests := []struct {
		in, name, version string
	}{
		{"PostgreSQL 14.6", "PostgreSQL", "14.6"},
		{"PostGres: 14.6", "PostGres", "14.6"},
		{"Microsoft SQL Server 2019 SP2", "Microsoft SQL Server", "2019 SP2"},
		{"Neo4j 4.4", "Neo4j", "4.4"},
		{"MySQL-5.7.x-log", "MySQL", "5.7.x-log"},
		{"Redis v7", "Redis", "7"},
		{"MongoDB", "MongoDB", ""},
	}
	for _, tt := range tests {
		name, version := SplitNameVersion(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.version, version, tt.in)
	}
}

func TestSummarize(t *testing.T) {
	records := []MatchRecord{
		{Confidence: 1.0},
		{Confidence: 0.8},
		{Confidence: 0.79, Enrichment: &eol.Result{Status: eol.StatusSuccess}},
		{Confidence: 0.6, Enrichment: &eol.Result{Status: eol.StatusNotFound}},
		{Confidence: 0.59, Enrichment: &eol.Result{Status: eol.StatusError}},
	}
	s := Summarize(records)
	assert.Equal(t, Summary{
		Total: 5, High: 2, Medium: 2, Low: 1,
		WithEnrichment: 3, LookupSuccess: 1, LookupNotFound: 1, LookupErrors: 1,
	}, s)
}
