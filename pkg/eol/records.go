package eol

import "github.com/tidwall/gjson"

// Unknown is reported for dates the API does not publish.
const Unknown = "Unknown"

// Release is one release-cycle record. Fields in the upstream payload mix
// booleans and date strings, so the raw record is kept for rendering.
type Release struct {
	raw gjson.Result
}

func newRelease(rec gjson.Result) Release {
	return Release{raw: rec}
}

// Cycle returns the cycle label, or "" when the record has none.
func (r Release) Cycle() string {
	c := r.raw.Get("cycle")
	if !truthy(c) {
		return ""
	}
	return c.String()
}

// EOL renders the end-of-life field: a date, "true"/"false", or Unknown.
func (r Release) EOL() string {
	return stringOr(r.raw.Get("eol"), Unknown)
}

// ReleaseDate returns the release date or Unknown.
func (r Release) ReleaseDate() string {
	return stringOr(r.raw.Get("releaseDate"), Unknown)
}

// Supported is true when the support field is absent, true, or a non-empty date.
func (r Release) Supported() bool {
	s := r.raw.Get("support")
	if !s.Exists() {
		return true
	}
	return truthy(s)
}

// LTS reports whether the record is flagged long-term-support.
func (r Release) LTS() bool {
	return truthy(r.raw.Get("lts"))
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.JSON:
		return true
	default:
		return false
	}
}

func stringOr(v gjson.Result, fallback string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.String()
}
