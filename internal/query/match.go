package query

import (
	"strings"
	"time"

	"github.com/stapos/stapos/internal/store"
)

// matches reports whether rec satisfies the filter. A missing field never
// matches; incomparable values never match. No string-to-number coercion
// happens here: values compare as stored.
func matches(rec store.Record, f Filter) bool {
	v, ok := rec[f.Field]
	if !ok || v == nil {
		return false
	}

	switch f.Kind {
	case KindEq:
		return equalValues(v, f.Value)
	case KindGte:
		c, ok := compareValues(v, f.Value)
		return ok && c >= 0
	case KindLt:
		c, ok := compareValues(v, f.Value)
		return ok && c < 0
	case KindIn:
		for _, want := range f.Values {
			if equalValues(v, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// equalValues compares two values of like type. Numbers compare
// numerically regardless of Go numeric type (stored JSON numbers decode
// as float64, caller literals are often ints).
func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// compareValues orders two values with their natural ordering: numeric for
// numbers, chronological for ISO timestamp strings, lexicographic for
// other strings. The second return is false for incomparable pairs.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}

	if at, ok := parseTimestamp(as); ok {
		if bt, ok := parseTimestamp(bs); ok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}

	return strings.Compare(as, bs), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func parseTimestamp(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
