// Package pagination normalizes offset-based paging parameters.
package pagination

import (
	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
)

// Defaults used by list endpoints when the caller omits from or size.
const (
	DefaultFrom = 0
	DefaultSize = 10
	MaxSize     = 1000
)

// Page is an offset window over an ordered result set.
type Page struct {
	From int
	Size int
}

// New validates a from/size pair. from must be non-negative and size
// positive; sizes above MaxSize are clamped.
func New(from, size int) (Page, error) {
	if from < 0 {
		return Page{}, apperrors.InvalidArgumentf("from must be greater than or equal to 0, got %d", from)
	}
	if size <= 0 {
		return Page{}, apperrors.InvalidArgumentf("size must be greater than 0, got %d", size)
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Page{From: from, Size: size}, nil
}

// Default returns the page used when no paging input is supplied.
func Default() Page {
	return Page{From: DefaultFrom, Size: DefaultSize}
}

// Window slices items to the page, for results that are paged in memory.
func Window[T any](items []T, page Page) []T {
	if page.Size <= 0 {
		page = Default()
	}
	if page.From >= len(items) {
		return []T{}
	}
	end := page.From + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[page.From:end]
}
