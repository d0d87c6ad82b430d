package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
)

func invalidParam(name, format string, args ...any) error {
	err := apperrors.Newf(apperrors.CodeInvalidArgument, format, args...)
	err.Metadata = map[string]string{"field": name}
	return err
}

// PathInt64 parses a positive integer route parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, invalidParam(name, "Failed to convert value of type String to required type long; value: %q", raw)
	}
	return value, nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, "Invalid parameter type: %s", name)
	}
	return value, nil
}

// QueryInt64 parses a required positive integer query parameter.
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, invalidParam(name, "Required request parameter '%s' is not present", name)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, invalidParam(name, "Invalid parameter type: %s", name)
	}
	return value, nil
}

// QueryInt64List parses repeated or comma-separated integer query values.
func QueryInt64List(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, raw := range QueryStrings(r, name) {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, invalidParam(name, "Invalid parameter type: %s", name)
		}
		out = append(out, value)
	}
	return out, nil
}

// QueryStrings returns repeated or comma-separated query values with blanks removed.
func QueryStrings(r *http.Request, name string) []string {
	var out []string
	for _, value := range r.URL.Query()[name] {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidParam(name, "Invalid parameter type: %s", name)
	}
	return &value, nil
}

// QueryTime parses an optional timestamp query parameter in DateTimeLayout.
func QueryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := ParseDateTime(raw)
	if err != nil {
		return nil, invalidParam(name, "Invalid date format for %s: %s", name, raw)
	}
	return &value, nil
}

// ParseDateTime parses one DateTimeLayout timestamp as UTC.
func ParseDateTime(value string) (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, strings.TrimSpace(value), time.UTC)
}

// FormatDateTime renders t in DateTimeLayout.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}
