package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50

	ParamLimit      = "limit"
	ParamStartIndex = "startIndex"
)

// Params holds paging parameters extracted from a request.
type Params struct {
	Limit      int
	StartIndex int
}

// FromContext extracts paging parameters from the echo context. maxLimit is
// both the default and the upper bound for the limit; a non-positive maxLimit
// falls back to DefaultLimit. Non-numeric or negative values use the defaults.
func FromContext(c echo.Context, maxLimit int) Params {
	return Parse(c.QueryParam(ParamLimit), c.QueryParam(ParamStartIndex), maxLimit)
}

// Parse is FromContext for raw parameter values.
func Parse(limitParam, startParam string, maxLimit int) Params {
	if maxLimit <= 0 {
		maxLimit = DefaultLimit
	}
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 {
		limit = maxLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	start, err := strconv.Atoi(startParam)
	if err != nil || start < 0 {
		start = 0
	}

	return Params{Limit: limit, StartIndex: start}
}

// Slice returns the page of items selected by p. It never returns nil.
func Slice[T any](items []T, p Params) []T {
	if p.StartIndex >= len(items) || p.Limit <= 0 {
		return []T{}
	}
	end := p.StartIndex + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.StartIndex:end]
}
