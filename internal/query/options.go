// Package query turns raw list parameters into a bounded, parameterized SQL
// descriptor. Pagination and sorting are normalized silently; filter values
// that fail validation are reported as typed errors.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Sort directions.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Reserved query parameter names. Every other parameter is a filter candidate.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSearch    = "search"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
)

// Options is the typed form of a list request.
type Options struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	Filters   map[string]string
}

// FromValues reads Options from URL query values. Absent or unparseable page
// and limit values are left at zero and resolved to defaults by Normalize; a
// supplied limit below 1 clamps to 1.
func FromValues(v url.Values) Options {
	limit := atoiOrZero(v.Get(ParamLimit))
	if limit < 1 && isInt(v.Get(ParamLimit)) {
		limit = 1
	}
	opts := Options{
		Page:      atoiOrZero(v.Get(ParamPage)),
		Limit:     limit,
		Search:    v.Get(ParamSearch),
		SortBy:    v.Get(ParamSortBy),
		SortOrder: v.Get(ParamSortOrder),
		Filters:   make(map[string]string),
	}
	for key, vals := range v {
		switch key {
		case ParamPage, ParamLimit, ParamSearch, ParamSortBy, ParamSortOrder:
			continue
		}
		if len(vals) > 0 {
			opts.Filters[key] = vals[0]
		}
	}
	return opts
}

// Normalize clamps page and limit and resolves the sort direction. A zero
// Limit means "not supplied" and takes DefaultLimit. Page is capped so that
// Offset never overflows.
func (o Options) Normalize() Options {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	switch {
	case o.Limit == 0:
		o.Limit = DefaultLimit
	case o.Limit < 1:
		o.Limit = 1
	case o.Limit > MaxLimit:
		o.Limit = MaxLimit
	}
	if maxPage := math.MaxInt / o.Limit; o.Page > maxPage {
		o.Page = maxPage
	}
	o.Search = strings.TrimSpace(o.Search)
	if strings.EqualFold(o.SortOrder, OrderDesc) {
		o.SortOrder = OrderDesc
	} else {
		o.SortOrder = OrderAsc
	}
	return o
}

// Offset returns the row offset for the current page.
func (o Options) Offset() int {
	return (o.Page - 1) * o.Limit
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func isInt(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}
