// Package query is a small generic sort/filter utility shared by the
// aggregation engine and the record-listing API. Sorting is always stable
// and never mutates its input.
package query

import (
	"sort"

	"estratto/internal/core"

	"github.com/shopspring/decimal"
)

// Direction controls sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection maps the API's "asc"/"desc" values; anything else
// defaults to ascending.
func ParseDirection(s string) Direction {
	if s == "desc" {
		return Descending
	}
	return Ascending
}

// Less reports whether a sorts before b in ascending order.
type Less[T any] func(a, b T) bool

// Sort returns a new slice ordered by less in the given direction. Equal
// elements keep their relative input order, so repeated application with
// the same key is idempotent.
func Sort[T any](items []T, less Less[T], dir Direction) []T {
	out := make([]T, len(items))
	copy(out, items)

	cmp := less
	if dir == Descending {
		cmp = func(a, b T) bool { return less(b, a) }
	}
	sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) })
	return out
}

// ByString builds a lexicographic comparator from a key selector.
func ByString[T any](key func(T) string) Less[T] {
	return func(a, b T) bool { return key(a) < key(b) }
}

// ByNumber builds a numeric comparator from a key selector.
func ByNumber[T any](key func(T) float64) Less[T] {
	return func(a, b T) bool { return key(a) < key(b) }
}

// ByDecimal builds a comparator over decimal keys.
func ByDecimal[T any](key func(T) decimal.Decimal) Less[T] {
	return func(a, b T) bool { return key(a).LessThan(key(b)) }
}

// ByDate builds a comparator over calendar-date keys. Records without a
// parsable date sort as the oldest.
func ByDate[T any](key func(T) *core.Date) Less[T] {
	return func(a, b T) bool {
		da, db := key(a), key(b)
		switch {
		case da == nil && db == nil:
			return false
		case da == nil:
			return true
		case db == nil:
			return false
		default:
			return da.Before(*db)
		}
	}
}

// FilterDateRange keeps records whose date falls inside the inclusive
// [from, to] bounds. A nil bound is open; records without a date are
// dropped whenever any bound is set.
func FilterDateRange[T any](items []T, dateOf func(T) *core.Date, from, to *core.Date) []T {
	if from == nil && to == nil {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		d := dateOf(item)
		if d == nil {
			continue
		}
		if from != nil && d.Before(*from) {
			continue
		}
		if to != nil && d.After(*to) {
			continue
		}
		out = append(out, item)
	}
	return out
}
