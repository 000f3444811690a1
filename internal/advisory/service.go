package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/metrics"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

const (
	// NotFoundMessage is returned when the source has no document for a country.
	NotFoundMessage = "Country data not found in Canadian database."
	// NoAdvisoryMessage is returned when a document carries no usable text.
	NoAdvisoryMessage = "No advisory information available for this country."

	DefaultSourceName = "Government of Canada"
)

// Fetcher retrieves one JSON document. It returns an error matching
// ErrNotFound when the document does not exist.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) (any, error)
}

// Service looks up and scores country advisories.
type Service struct {
	fetcher     Fetcher
	urlTemplate string
	sourceName  string
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the clock used for the default updated timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSourceName sets the provenance label reported in details.
func WithSourceName(name string) Option {
	return func(s *Service) { s.sourceName = name }
}

// NewService builds a service. urlTemplate must contain one %s for the country code.
func NewService(fetcher Fetcher, urlTemplate string, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		urlTemplate: urlTemplate,
		sourceName:  DefaultSourceName,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URLFor returns the upstream URL for a normalized country code.
func (s *Service) URLFor(code string) string {
	return fmt.Sprintf(s.urlTemplate, code)
}

// GetAdvisory fetches, normalizes and scores the advisory for countryCode.
func (s *Service) GetAdvisory(ctx context.Context, countryCode string) (models.AdvisoryResult, error) {
	code, err := NormalizeCode(countryCode)
	if err != nil {
		metrics.RecordAdvisoryLookup(metrics.OutcomeInvalid)
		return models.AdvisoryResult{}, err
	}

	url := s.URLFor(code)
	log := logger.WithContext(ctx).With("country", code)

	raw, err := s.fetcher.FetchJSON(ctx, url)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			metrics.RecordAdvisoryLookup(metrics.OutcomeNotFound)
			log.Info("advisory not found upstream", "url", url)
			return models.AdvisoryResult{
				CountryCode: code,
				CountryName: code,
				Score:       0,
				Message:     NotFoundMessage,
				Updated:     s.timestamp(),
			}, nil
		}

		metrics.RecordAdvisoryLookup(metrics.OutcomeUpstreamError)
		log.Warn("advisory fetch failed", "url", url, "error", err)
		var ue *apperrors.UpstreamError
		if errors.As(err, &ue) {
			return models.AdvisoryResult{}, err
		}
		return models.AdvisoryResult{}, &apperrors.UpstreamError{Source: "advisory", URL: url, Err: err}
	}

	n := Normalize(raw, code)
	result := models.AdvisoryResult{
		CountryCode: code,
		CountryName: n.CountryName,
		Message:     n.AdvisoryText,
		Updated:     s.timestamp(),
		Details:     &models.Details{Source: s.sourceName, URL: url},
	}
	if result.CountryName == "" {
		result.CountryName = code
	}
	if updated, ok := normalizeDate(n.PublishedDate, n.PublishedZone); ok {
		result.Updated = updated
	} else if n.PublishedDate != "" {
		log.Debug("unparsable publish date", "date", n.PublishedDate)
	}

	switch {
	case n.Fallback != nil:
		result.Score = n.Fallback.Score
		metrics.RecordAdvisoryLookup(metrics.OutcomeFallback)
	case strings.TrimSpace(n.AdvisoryText) == "":
		result.Score = 0
		result.Message = NoAdvisoryMessage
		metrics.RecordAdvisoryLookup(metrics.OutcomeOK)
	default:
		result.Score = Score(n.AdvisoryText)
		metrics.RecordAdvisoryLookup(metrics.OutcomeOK)
	}
	metrics.RecordAdvisoryScore(result.Score)

	log.Debug("advisory scored", "score", result.Score, "fallback", n.Fallback != nil)
	return result, nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// NormalizeCode trims and uppercases a country code and requires two ASCII letters.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", apperrors.ValidationError{Field: "countryCode", Message: "is required"}
	}
	if len(code) != 2 || !isASCIILetter(code[0]) || !isASCIILetter(code[1]) {
		return "", apperrors.ValidationError{Field: "countryCode", Message: "must be two letters"}
	}
	return code, nil
}

func isASCIILetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
