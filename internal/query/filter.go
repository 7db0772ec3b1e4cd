// Package query emulates a relational query surface (select with filters
// and ordering, insert, update-by-filter, delete-by-filter) on top of the
// embedded store, so callers written against the remote service's query
// API need no code change when running offline.
package query

// Kind enumerates the supported filter predicates. Filters compose by
// logical AND only.
type Kind int

const (
	// KindEq matches records whose field equals the literal.
	KindEq Kind = iota
	// KindGte matches records whose field is ordered >= the literal.
	KindGte
	// KindLt matches records whose field is ordered < the literal.
	KindLt
	// KindIn matches records whose field equals one of the literals.
	KindIn
)

// Filter is one predicate over a record field. A record lacking the field
// never matches.
type Filter struct {
	Field  string
	Kind   Kind
	Value  any   // KindEq, KindGte, KindLt
	Values []any // KindIn
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Kind: KindEq, Value: value}
}

// Gte builds a greater-or-equal filter. String timestamps compare
// chronologically.
func Gte(field string, value any) Filter {
	return Filter{Field: field, Kind: KindGte, Value: value}
}

// Lt builds a less-than filter. String timestamps compare chronologically.
func Lt(field string, value any) Filter {
	return Filter{Field: field, Kind: KindLt, Value: value}
}

// In builds a membership filter.
func In(field string, values ...any) Filter {
	return Filter{Field: field, Kind: KindIn, Values: values}
}

// Request is a declarative select: all filters apply (AND), then the
// result is stable-sorted by OrderBy if set (ascending unless Descending),
// ties keeping insertion order.
type Request struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
}
