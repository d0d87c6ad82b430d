// Package httpx provides the JSON response and middleware helpers shared by
// the REST services.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/i18n"
	"github.com/louisbranch/ewm/internal/platform/id"
	"github.com/louisbranch/ewm/internal/platform/requestctx"
)

// DateTimeLayout is the wire format for timestamps in request and response bodies.
const DateTimeLayout = "2006-01-02 15:04:05"

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ApiError is the error body returned by every REST endpoint.
type ApiError struct {
	Status    string   `json:"status"`
	Reason    string   `json:"reason"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID injects and echoes a request id for correlation.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				generated, err := id.NewID()
				if err != nil {
					generated = fmt.Sprintf("req-%d", time.Now().UnixNano())
				}
				requestID = generated
			}
			w.Header().Set(RequestIDHeader, requestID)
			ctx := requestctx.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					log.Printf(
						"panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
						r.Method,
						r.URL.Path,
						requestctx.RequestIDFromContext(r.Context()),
						recovered,
						strings.TrimSpace(string(debug.Stack())),
					)
					WriteError(w, r, fmt.Errorf("panic: %v", recovered))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// RequestLogger writes one access line per request.
func RequestLogger(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Printf(
				"http method=%s path=%s status=%d duration=%s request_id=%s",
				r.Method,
				r.URL.Path,
				recorder.status,
				time.Since(start).Round(time.Microsecond),
				requestctx.RequestIDFromContext(r.Context()),
			)
		})
	}
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

// WriteError maps err to its HTTP status and writes an ApiError body with a
// reason localized for the request.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if w == nil {
		return
	}
	printer := i18n.Printer(i18n.ResolveTag(r))
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()

	body := ApiError{
		Status:    strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		Reason:    printer.Sprintf(reasonKey(status)),
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(DateTimeLayout),
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		body.Message = domainErr.Error()
		if field := domainErr.Metadata["field"]; field != "" {
			body.Errors = append(body.Errors, printer.Sprintf(i18n.ReasonInvalidArgument, field))
		}
	}
	requestID := ""
	if r != nil {
		requestID = requestctx.RequestIDFromContext(r.Context())
	}
	if status >= http.StatusInternalServerError {
		log.Printf("request failed request_id=%s: %v", requestID, err)
		body.Message = printer.Sprintf(i18n.ReasonInternal)
	} else {
		log.Printf("request rejected request_id=%s code=%s: %v", requestID, code, err)
	}
	_ = WriteJSON(w, status, body)
}

func reasonKey(status int) string {
	switch status {
	case http.StatusNotFound:
		return i18n.ReasonNotFound
	case http.StatusConflict:
		return i18n.ReasonConflict
	case http.StatusBadRequest:
		return i18n.ReasonBadRequest
	default:
		return i18n.ReasonInternal
	}
}

// DecodeJSON reads one JSON document from the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return apperrors.InvalidArgumentf("Malformed JSON request")
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "Malformed JSON request", err)
	}
	return nil
}

// RequestContext returns r.Context() with a nil-safe fallback to context.Background().
func RequestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
