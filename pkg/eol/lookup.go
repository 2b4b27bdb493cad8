package eol

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"eolmatch/pkg/backoff"
	"eolmatch/pkg/logx"
	"eolmatch/pkg/release"
)

// Status tags a lookup Result.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

const maxAvailableVersions = 10

// Result is the structured, JSON-serializable answer to a product/version lookup.
type Result struct {
	Status            Status   `json:"status"`
	Product           string   `json:"product,omitempty"`
	Version           string   `json:"version,omitempty"`
	APIProductName    string   `json:"api_product_name,omitempty"`
	MatchedVersion    string   `json:"matched_version,omitempty"`
	MatchType         string   `json:"match_type,omitempty"`
	EOLDate           string   `json:"eol_date,omitempty"`
	SupportStatus     string   `json:"support_status,omitempty"`
	LatestVersion     string   `json:"latest_version,omitempty"`
	LTSVersion        string   `json:"lts_version,omitempty"`
	ReleaseDate       string   `json:"release_date,omitempty"`
	ErrorType         string   `json:"error_type,omitempty"`
	ErrorMessage      string   `json:"error_message,omitempty"`
	AvailableVersions []string `json:"available_versions,omitempty"`
	RetryCount        int      `json:"retry_count,omitempty"`
	StatusCode        int      `json:"status_code,omitempty"`
}

// Fetcher retrieves release data for a product identifier.
type Fetcher interface {
	Fetch(ctx context.Context, productID string) Outcome
}

// Service maps product names, paces remote calls and resolves versions.
type Service struct {
	fetcher  Fetcher
	sleeper  backoff.Sleeper
	now      func() time.Time
	logger   *logx.Logger
	lastCall time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewService creates a lookup service. Consecutive remote calls are spaced at least interval apart.
func NewService(fetcher Fetcher, interval time.Duration, sleeper backoff.Sleeper, logger *logx.Logger) *Service {
	if sleeper == nil {
		sleeper = backoff.Real()
	}
	if logger == nil {
		logger = logx.NewLogger("eol")
	}
	return &Service{
		fetcher:  fetcher,
		interval: interval,
		sleeper:  sleeper,
		now:      time.Now,
		logger:   logger,
	}
}

// Lookup resolves product and version to release lifecycle data. It never
// panics or returns an error; failures are encoded in the Result.
func (s *Service) Lookup(ctx context.Context, product, version string) (result Result) {
	product = strings.TrimSpace(product)
	version = strings.TrimSpace(version)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Unexpected error looking up %q %q: %v", product, version, r)
			result = Result{
				Status:       StatusError,
				Product:      product,
				Version:      version,
				ErrorType:    ErrTypeUnexpected,
				ErrorMessage: fmt.Sprint(r),
			}
		}
	}()

	if product == "" {
		return Result{Status: StatusError, ErrorType: ErrTypeInvalidInput, ErrorMessage: "Product name is required"}
	}
	if version == "" {
		return Result{Status: StatusError, Product: product, ErrorType: ErrTypeInvalidInput, ErrorMessage: "Version is required"}
	}

	productID := ProductID(product)
	if productID == "" {
		return Result{
			Status:       StatusNotFound,
			Product:      product,
			Version:      version,
			ErrorType:    ErrTypeProductNotFound,
			ErrorMessage: fmt.Sprintf("Product '%s' not found in mapping", product),
		}
	}

	normalized := release.Normalize(version)
	s.logger.Info("Looking up: %s (%s) version %s", product, productID, normalized)

	if err := s.pace(ctx); err != nil {
		return Result{
			Status:         StatusError,
			Product:        product,
			Version:        version,
			APIProductName: productID,
			ErrorType:      ErrTypeRequest,
			ErrorMessage:   fmt.Sprintf("lookup cancelled: %v", err),
		}
	}
	out := s.fetcher.Fetch(ctx, productID)

	base := Result{Product: product, Version: version, APIProductName: productID}
	switch out.Kind {
	case NotFound:
		base.Status = StatusNotFound
		base.ErrorType = ErrTypeProductNotFound
		base.ErrorMessage = out.Message
		return base
	case TransientFailure, PermanentFailure:
		base.Status = StatusError
		base.ErrorType = out.ErrorType
		base.ErrorMessage = out.Message
		base.RetryCount = out.Attempts
		if out.Kind == PermanentFailure && out.ErrorType == ErrTypeHTTP {
			base.StatusCode = out.StatusCode
		}
		return base
	case Success:
		return enrich(base, normalized, out.Releases)
	default:
		base.Status = StatusError
		base.ErrorType = ErrTypeUnexpected
		base.ErrorMessage = fmt.Sprintf("unhandled outcome %s", out.Kind)
		return base
	}
}

func enrich(base Result, normalized string, releases []Release) Result {
	if len(releases) == 0 {
		base.Status = StatusNotFound
		base.ErrorType = ErrTypeNoVersionData
		base.ErrorMessage = "No version data available for this product"
		return base
	}

	candidates := make([]string, 0, len(releases))
	byCycle := make(map[string]Release, len(releases))
	for _, r := range releases {
		cycle := r.Cycle()
		if cycle == "" {
			continue
		}
		candidates = append(candidates, cycle)
		if _, seen := byCycle[cycle]; !seen {
			byCycle[cycle] = r
		}
	}
	if len(candidates) == 0 {
		base.Status = StatusNotFound
		base.ErrorType = ErrTypeNoVersionsFound
		base.ErrorMessage = "No version cycles found in API response"
		return base
	}

	match := release.Resolve(normalized, candidates)
	if !match.Found() {
		available := candidates
		if len(available) > maxAvailableVersions {
			available = available[:maxAvailableVersions]
		}
		base.Status = StatusNotFound
		base.ErrorType = ErrTypeVersionNotFound
		base.ErrorMessage = fmt.Sprintf("Version '%s' not found. Available versions: %s", normalized, strings.Join(available, ", "))
		base.AvailableVersions = available
		return base
	}

	info, ok := byCycle[match.Value]
	if !ok {
		base.Status = StatusNotFound
		base.ErrorType = ErrTypeVersionDataNotFound
		base.ErrorMessage = fmt.Sprintf("No data found for matched version %s", match.Value)
		return base
	}

	lts := "N/A"
	for _, r := range releases {
		if r.LTS() && r.Cycle() != "" {
			lts = r.Cycle()
			break
		}
	}

	support := "ended"
	if info.Supported() {
		support = "active"
	}

	base.Status = StatusSuccess
	base.MatchedVersion = match.Value
	base.MatchType = match.Kind.String()
	base.EOLDate = info.EOL()
	base.SupportStatus = support
	base.LatestVersion = candidates[0]
	base.LTSVersion = lts
	base.ReleaseDate = info.ReleaseDate()
	return base
}

// pace blocks until interval has elapsed since the previous remote call.
func (s *Service) pace(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval > 0 && !s.lastCall.IsZero() {
		if wait := s.interval - s.now().Sub(s.lastCall); wait > 0 {
			if err := s.sleeper.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	s.lastCall = s.now()
	return nil
}

// StatusString reports the result status as a plain string.
func (r Result) StatusString() string {
	return string(r.Status)
}
