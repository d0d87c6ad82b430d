package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/ewm/internal/services/ewm/domain"

// Kinds used in client-facing not-found messages.
const (
	kindUser        = "User"
	kindCategory    = "Category"
	kindEvent       = "Event"
	kindRequest     = "Request"
	kindComment     = "Comment"
	kindCompilation = "Compilation"
)

// Clock returns the current time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func notFound(kind string, id int64) error {
	return apperrors.NotFoundf("%s with id=%d was not found", kind, id)
}

// lookupErr converts a store lookup failure into a domain error.
func lookupErr(err error, kind string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(kind, id)
	}
	return fmt.Errorf("get %s %d: %w", strings.ToLower(kind), id, err)
}

func invalidField(field, format string, args ...any) error {
	err := apperrors.Newf(apperrors.CodeInvalidArgument, format, args...)
	err.Metadata = map[string]string{"field": field}
	return err
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if strings.TrimSpace(value) == "" && min > 0 {
		return invalidField(field, "Field: %s. Error: must not be blank. Value: %q", field, value)
	}
	if n < min || n > max {
		return invalidField(field, "Field: %s. Error: length must be between %d and %d. Value: %q", field, min, max, value)
	}
	return nil
}

func checkOptionalLength(field string, value *string, min, max int) error {
	if value == nil {
		return nil
	}
	return checkLength(field, *value, min, max)
}

// EventURI is the stats resource path for one event.
func EventURI(id int64) string {
	return "/events/" + strconv.FormatInt(id, 10)
}

// attachViews sets Views on each event from the stats reporter. Stats
// failures leave every count at zero.
func attachViews(ctx context.Context, stats StatsReporter, events []EventDetails) {
	if stats == nil || len(events) == 0 {
		return
	}
	uris := make([]string, 0, len(events))
	for _, event := range events {
		uris = append(uris, EventURI(event.ID))
	}
	views, err := stats.Views(ctx, uris, true)
	if err != nil {
		log.Printf("stats views unavailable, defaulting to 0: %v", err)
		return
	}
	for i := range events {
		events[i].Views = views[EventURI(events[i].ID)]
	}
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
