// Package client reports endpoint hits to the stats service and reads view
// counts back.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/platform/timeouts"
	ewmdomain "github.com/louisbranch/ewm/internal/services/ewm/domain"
	"github.com/louisbranch/ewm/internal/services/stats/api/rest"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// AppName identifies the main service in recorded hits.
const AppName = "ewm-main-service"

// HealthServiceName is the grpc.health.v1 service the stats service reports.
const HealthServiceName = "ewm.v1.StatsService"

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Client talks to the stats REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	pending    sync.WaitGroup
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock replaces the clock used for the end of the stats window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeouts.StatsRequest},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordHit delivers one hit in the background. Failures are logged.
func (c *Client) RecordHit(ctx context.Context, uri string, ip string, at time.Time) {
	if c == nil || c.baseURL == "" {
		return
	}
	deliveryCtx := context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(deliveryCtx, timeouts.HitDelivery)
		defer cancel()
		if err := c.postHit(ctx, rest.HitDto{App: AppName, URI: uri, IP: ip, Timestamp: httpx.NewDateTimePtr(&at)}); err != nil {
			log.Printf("stats hit dropped uri=%s: %v", uri, err)
		}
	}()
}

// Close waits for in-flight hit deliveries.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.pending.Wait()
}

func (c *Client) postHit(ctx context.Context, hit rest.HitDto) error {
	body, err := json.Marshal(hit)
	if err != nil {
		return fmt.Errorf("encode hit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build hit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hit request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hit returned %s", resp.Status)
	}
	return nil
}

// Views returns hit counts keyed by uri over all recorded history.
func (c *Client) Views(ctx context.Context, uris []string, unique bool) (map[string]int64, error) {
	views := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return views, nil
	}
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("stats client is not configured")
	}

	query := url.Values{}
	query.Set("start", httpx.FormatDateTime(epoch))
	query.Set("end", httpx.FormatDateTime(c.now()))
	query.Set("uris", strings.Join(uris, ","))
	query.Set("unique", strconv.FormatBool(unique))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats returned %s", resp.Status)
	}

	var rows []rest.ViewStatsDto
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	for _, row := range rows {
		views[row.URI] += row.Hits
	}
	return views, nil
}

var _ ewmdomain.StatsReporter = (*Client)(nil)
