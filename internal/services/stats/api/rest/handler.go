// Package rest exposes the stats service over HTTP.
package rest

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/stats/domain"
)

// Service is the stats use-case surface served by the handler.
type Service interface {
	RecordHit(ctx context.Context, hit domain.Hit) (domain.Hit, error)
	Stats(ctx context.Context, query domain.Query) ([]domain.ViewStats, error)
}

// HitDto is the wire form of one hit.
type HitDto struct {
	ID        string          `json:"id,omitempty"`
	App       string          `json:"app"`
	URI       string          `json:"uri"`
	IP        string          `json:"ip"`
	Timestamp *httpx.DateTime `json:"timestamp"`
}

// ViewStatsDto is the wire form of one aggregate row.
type ViewStatsDto struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

type handler struct {
	service Service
}

// NewHandler builds the stats router.
func NewHandler(service Service, logger *log.Logger) http.Handler {
	h := &handler{service: service}
	router := chi.NewRouter()
	router.Use(httpx.RequestID(), httpx.RecoverPanic(), httpx.RequestLogger(logger))
	router.Post("/hit", h.handleHit)
	router.Get("/stats", h.handleStats)
	return router
}

func (h *handler) handleHit(w http.ResponseWriter, r *http.Request) {
	var in HitDto
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	hit := domain.Hit{App: in.App, URI: in.URI, IP: in.IP}
	if in.Timestamp != nil {
		hit.Timestamp = in.Timestamp.Time
	}
	saved, err := h.service.RecordHit(httpx.RequestContext(r), hit)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, HitDto{
		ID:        saved.ID,
		App:       saved.App,
		URI:       saved.URI,
		IP:        saved.IP,
		Timestamp: httpx.NewDateTimePtr(&saved.Timestamp),
	})
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	query, err := parseStatsQuery(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	stats, err := h.service.Stats(httpx.RequestContext(r), query)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]ViewStatsDto, 0, len(stats))
	for _, view := range stats {
		out = append(out, ViewStatsDto{App: view.App, URI: view.URI, Hits: view.Hits})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, out)
}

func parseStatsQuery(r *http.Request) (domain.Query, error) {
	start, err := requiredTime(r, "start")
	if err != nil {
		return domain.Query{}, err
	}
	end, err := requiredTime(r, "end")
	if err != nil {
		return domain.Query{}, err
	}
	unique, err := httpx.QueryBool(r, "unique")
	if err != nil {
		return domain.Query{}, err
	}
	query := domain.Query{Start: start, End: end, URIs: httpx.QueryStrings(r, "uris")}
	if unique != nil {
		query.Unique = *unique
	}
	return query, nil
}

func requiredTime(r *http.Request, name string) (time.Time, error) {
	value, err := httpx.QueryTime(r, name)
	if err != nil {
		return time.Time{}, err
	}
	if value == nil {
		err := apperrors.Newf(apperrors.CodeInvalidArgument, "Required request parameter '%s' is not present", name)
		err.Metadata = map[string]string{"field": name}
		return time.Time{}, err
	}
	return *value, nil
}
