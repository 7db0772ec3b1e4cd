package remote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stapos/stapos/internal/query"
)

// Filters travel in the URL query, one parameter per predicate:
//
//	?barcode=eq.123&stock_quantity=lt.10&payment_method=in.(cash,card)
//	&order=created_at.desc
//
// Literal typing is recovered on decode: values parsing as numbers or
// booleans are decoded as such, everything else stays a string. That is
// lossy for string fields that look numeric, which matches the behavior
// of comparable REST query surfaces; such fields should be filtered by
// index on the server side instead.

const orderParam = "order"

// EncodeQuery renders a query request as URL parameters.
func EncodeQuery(req query.Request) url.Values {
	values := url.Values{}
	for _, f := range req.Filters {
		switch f.Kind {
		case query.KindEq:
			values.Add(f.Field, "eq."+encodeLiteral(f.Value))
		case query.KindGte:
			values.Add(f.Field, "gte."+encodeLiteral(f.Value))
		case query.KindLt:
			values.Add(f.Field, "lt."+encodeLiteral(f.Value))
		case query.KindIn:
			parts := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				parts = append(parts, encodeLiteral(v))
			}
			values.Add(f.Field, "in.("+strings.Join(parts, ",")+")")
		}
	}
	if req.OrderBy != "" {
		dir := "asc"
		if req.Descending {
			dir = "desc"
		}
		values.Set(orderParam, req.OrderBy+"."+dir)
	}
	return values
}

// DecodeQuery parses URL parameters back into a query request.
func DecodeQuery(values url.Values) (query.Request, error) {
	var req query.Request
	for field, list := range values {
		if field == orderParam {
			continue
		}
		for _, raw := range list {
			f, err := decodeFilter(field, raw)
			if err != nil {
				return query.Request{}, err
			}
			req.Filters = append(req.Filters, f)
		}
	}

	if raw := values.Get(orderParam); raw != "" {
		field, dir, ok := strings.Cut(raw, ".")
		if !ok || field == "" || (dir != "asc" && dir != "desc") {
			return query.Request{}, fmt.Errorf("invalid order parameter: %q", raw)
		}
		req.OrderBy = field
		req.Descending = dir == "desc"
	}
	return req, nil
}

func decodeFilter(field, raw string) (query.Filter, error) {
	op, rest, ok := strings.Cut(raw, ".")
	if !ok {
		return query.Filter{}, fmt.Errorf("invalid filter for %s: %q", field, raw)
	}
	switch op {
	case "eq":
		return query.Eq(field, decodeLiteral(rest)), nil
	case "gte":
		return query.Gte(field, decodeLiteral(rest)), nil
	case "lt":
		return query.Lt(field, decodeLiteral(rest)), nil
	case "in":
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return query.Filter{}, fmt.Errorf("invalid membership filter for %s: %q", field, raw)
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
		var vals []any
		if inner != "" {
			for _, part := range strings.Split(inner, ",") {
				vals = append(vals, decodeLiteral(part))
			}
		}
		return query.In(field, vals...), nil
	default:
		return query.Filter{}, fmt.Errorf("unsupported filter op %q for %s", op, field)
	}
}

func encodeLiteral(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func decodeLiteral(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
