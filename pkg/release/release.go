// Package release normalizes free-form product version strings and resolves
// them against the release cycles published for a product.
package release

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MatchKind ranks how a target version was resolved. Lower values are stronger.
type MatchKind int

const (
	// NotFound means no candidate could be selected.
	NotFound MatchKind = iota
	// Exact means the target appears verbatim among the candidates.
	Exact
	// Major means a candidate shares the target's major version.
	Major
	// Closest means the numerically nearest candidate was selected.
	Closest
	// Latest means the target could not be compared and the first candidate was used.
	Latest
)

// String returns the wire name of the match kind.
func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "EXACT"
	case Major:
		return "MAJOR"
	case Closest:
		return "CLOSEST"
	case Latest:
		return "LATEST"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Match is the result of Resolve. Value is empty only when Kind is NotFound.
type Match struct {
	Value string
	Kind  MatchKind
}

// Found reports whether a candidate was selected.
func (m Match) Found() bool {
	return m.Kind != NotFound
}

var (
	wildcardSuffix = regexp.MustCompile(`[.\-]x$`)
	logSuffix      = regexp.MustCompile(`(?i)-log$`)
	editionSuffix  = regexp.MustCompile(`(?i)\s+(SP\d+|R\d+|Enterprise|Standard|Express|Developer).*$`)
)

// Normalize reduces a version string to at most "major.minor", dropping
// wildcard, "-log" and edition qualifiers. Normalize(Normalize(v)) == Normalize(v).
func Normalize(version string) string {
	current := strings.TrimSpace(version)
	for {
		next := normalizeOnce(current)
		if next == current {
			return current
		}
		current = next
	}
}

func normalizeOnce(v string) string {
	v = wildcardSuffix.ReplaceAllString(v, "")
	v = logSuffix.ReplaceAllString(v, "")
	v = editionSuffix.ReplaceAllString(v, "")
	if parts := strings.Split(v, "."); len(parts) > 2 {
		v = parts[0] + "." + parts[1]
	}
	return strings.TrimSpace(v)
}

// Resolve selects the best candidate for target using, in order: verbatim
// equality, same major version, nearest numeric "major.minor". Ties go to
// the earlier candidate. A non-numeric target falls back to the first candidate.
func Resolve(target string, candidates []string) Match {
	if len(candidates) == 0 {
		return Match{Kind: NotFound}
	}

	for _, c := range candidates {
		if c == target {
			return Match{Value: c, Kind: Exact}
		}
	}

	major := strings.Split(target, ".")[0]
	for _, c := range candidates {
		if c == major || strings.HasPrefix(c, major+".") {
			return Match{Value: c, Kind: Major}
		}
	}

	want, ok := numeric(target)
	if !ok {
		return Match{Value: candidates[0], Kind: Latest}
	}

	best := -1
	bestDiff := math.Inf(1)
	for i, c := range candidates {
		got, ok := numeric(c)
		if !ok {
			continue
		}
		if diff := math.Abs(got - want); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return Match{Value: candidates[0], Kind: Latest}
	}
	return Match{Value: candidates[best], Kind: Closest}
}

// numeric interprets "major[.minor...]" as major + minor/100.
func numeric(v string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(v), ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minor := 0
	if len(parts) > 1 {
		if minor, err = strconv.Atoi(parts[1]); err != nil {
			return 0, false
		}
	}
	return float64(major) + float64(minor)/100, true
}
