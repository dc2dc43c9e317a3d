// Package pagination parses list windows from query strings and wraps list
// results in a common envelope.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Params struct {
	Limit  int
	Offset int
}

// Parse reads ?limit and ?offset, falling back to a 1-based ?page when no
// offset is given. Out-of-range values are clamped rather than rejected.
func Parse(c echo.Context) Params {
	p := Params{Limit: clamp(queryInt(c, "limit"), 1, MaxLimit, DefaultLimit)}
	if off := queryInt(c, "offset"); off > 0 {
		p.Offset = off
	} else if page := queryInt(c, "page"); page > 1 {
		p.Offset = (page - 1) * p.Limit
	}
	return p
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

func clamp(v, lo, hi, fallback int) int {
	switch {
	case v < lo:
		return fallback
	case v > hi:
		return hi
	}
	return v
}

// More reports whether rows remain past this window.
func (p Params) More(total int) bool {
	return p.Offset+p.Limit < total
}

type Page[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPage never serializes a nil slice, so empty results encode as [].
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Data:    items,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.More(total),
	}
}
