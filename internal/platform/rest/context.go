package rest

import (
	"github.com/labstack/echo/v4"

	"github.com/ehr/restws/pkg/pagination"
)

// GlobalPropertyMaxResults overrides the configured result bound at runtime.
const GlobalPropertyMaxResults = "webservices.rest.maxresults"

// GlobalProperties is the live key/value configuration consulted per request.
type GlobalProperties interface {
	Int(key string) (int, bool)
}

// RequestContext carries the per-request representation and paging.
type RequestContext struct {
	Representation Representation
	Limit          int
	StartIndex     int
}

// Page returns the paging window.
func (rc RequestContext) Page() pagination.Params {
	return pagination.Params{Limit: rc.Limit, StartIndex: rc.StartIndex}
}

// MaxResults returns the live result bound: the global property when set and
// positive, otherwise fallback.
func MaxResults(props GlobalProperties, fallback int) int {
	if props != nil {
		if n, ok := props.Int(GlobalPropertyMaxResults); ok && n > 0 {
			return n
		}
	}
	if fallback <= 0 {
		return pagination.DefaultLimit
	}
	return fallback
}

// NewRequestContext reads v, limit and startIndex from the request.
func NewRequestContext(c echo.Context, props GlobalProperties, maxResultsDefault int) (RequestContext, error) {
	rep, err := ParseRepresentation(c.QueryParam(ParamRepresentation))
	if err != nil {
		return RequestContext{}, err
	}
	p := pagination.FromContext(c, MaxResults(props, maxResultsDefault))
	return RequestContext{Representation: rep, Limit: p.Limit, StartIndex: p.StartIndex}, nil
}
