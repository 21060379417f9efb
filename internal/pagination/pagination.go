// Package pagination normalizes page and limit parameters for list endpoints.
package pagination

import (
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is a 1-based page number and a page size.
type Request struct {
	Page  int
	Limit int
}

// Summary describes where a page sits in the full result set.
type Summary struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Normalize replaces missing or out-of-range values with defaults and caps the limit.
func Normalize(page int, limit int) Request {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Request{Page: page, Limit: limit}
}

// Parse reads raw query values, falling back to defaults for anything unparsable.
func Parse(rawPage string, rawLimit string) Request {
	return Normalize(parsePositive(rawPage), parsePositive(rawLimit))
}

func parsePositive(raw string) int {
	value, parseErr := strconv.Atoi(strings.TrimSpace(raw))
	if parseErr != nil {
		return 0
	}
	return value
}

// Offset is the number of rows preceding the requested page.
func (request Request) Offset() int {
	return (request.Page - 1) * request.Limit
}

// Summarize computes the page count for the given total.
func (request Request) Summarize(total int64) Summary {
	pages := 0
	if total > 0 && request.Limit > 0 {
		pages = int((total + int64(request.Limit) - 1) / int64(request.Limit))
	}
	return Summary{Page: request.Page, Limit: request.Limit, Total: total, Pages: pages}
}
