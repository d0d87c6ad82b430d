// Package domain records endpoint hits and aggregates view counts.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
)

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("stats store is not configured")

// Hit is one request to a tracked endpoint.
type Hit struct {
	ID        string
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// ViewStats is the hit count of one (app, uri) pair.
type ViewStats struct {
	App  string
	URI  string
	Hits int64
}

// Query selects hits in [Start, End]. Empty URIs means every uri. Unique
// counts distinct IPs instead of hits.
type Query struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

// Store persists hits and answers aggregate queries. Results are grouped by
// (app, uri) and ordered by hits descending.
type Store interface {
	SaveHit(ctx context.Context, hit Hit) (Hit, error)
	Stats(ctx context.Context, query Query) ([]ViewStats, error)
}

// Service validates and forwards stats operations.
type Service struct {
	store Store
}

// NewService constructs the stats use-cases.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func invalidField(field, format string, args ...any) error {
	err := apperrors.Newf(apperrors.CodeInvalidArgument, format, args...)
	err.Metadata = map[string]string{"field": field}
	return err
}

// RecordHit stores one hit.
func (s *Service) RecordHit(ctx context.Context, hit Hit) (Hit, error) {
	if s == nil || s.store == nil {
		return Hit{}, ErrStoreNotConfigured
	}
	hit.App = strings.TrimSpace(hit.App)
	hit.URI = strings.TrimSpace(hit.URI)
	hit.IP = strings.TrimSpace(hit.IP)
	switch {
	case hit.App == "":
		return Hit{}, invalidField("app", "Field: app. Error: must not be blank.")
	case hit.URI == "":
		return Hit{}, invalidField("uri", "Field: uri. Error: must not be blank.")
	case hit.IP == "":
		return Hit{}, invalidField("ip", "Field: ip. Error: must not be blank.")
	case hit.Timestamp.IsZero():
		return Hit{}, invalidField("timestamp", "Field: timestamp. Error: must not be null.")
	}
	hit.Timestamp = hit.Timestamp.UTC()
	return s.store.SaveHit(ctx, hit)
}

// Stats returns view counts for the query window.
func (s *Service) Stats(ctx context.Context, query Query) ([]ViewStats, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if query.Start.IsZero() {
		return nil, invalidField("start", "Parameter start is required")
	}
	if query.End.IsZero() {
		return nil, invalidField("end", "Parameter end is required")
	}
	if query.Start.After(query.End) {
		return nil, invalidField("start", "Parameter start must not be after end")
	}
	uris := make([]string, 0, len(query.URIs))
	for _, uri := range query.URIs {
		if uri = strings.TrimSpace(uri); uri != "" {
			uris = append(uris, uri)
		}
	}
	query.URIs = uris
	query.Start = query.Start.UTC()
	query.End = query.End.UTC()
	return s.store.Stats(ctx, query)
}
