package storage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stapos/stapos/internal/query"
)

// Field names end up inside SQL expressions, so only plain identifiers
// are allowed through.
var fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// buildWhere renders filters into SQL conditions over the doc column.
// Placeholder numbering starts at argOffset+1. Numeric comparisons run
// on the jsonb value itself. Casting the extracted text instead would
// error out the whole scan on the first row holding non-numeric text
// in that field.
func buildWhere(filters []query.Filter, argOffset int) (string, []any, error) {
	var conds []string
	var args []any
	n := argOffset

	for _, f := range filters {
		if !fieldNameRe.MatchString(f.Field) {
			return "", nil, fmt.Errorf("invalid field name %q", f.Field)
		}
		expr := fmt.Sprintf("doc->>'%s'", f.Field)

		switch f.Kind {
		case query.KindEq, query.KindGte, query.KindLt:
			op := map[query.Kind]string{
				query.KindEq:  "=",
				query.KindGte: ">=",
				query.KindLt:  "<",
			}[f.Kind]
			if num, ok := toNumber(f.Value); ok {
				n++
				conds = append(conds, fmt.Sprintf("doc->'%s' %s to_jsonb($%d::numeric)", f.Field, op, n))
				args = append(args, num)
			} else {
				n++
				conds = append(conds, fmt.Sprintf("%s %s $%d", expr, op, n))
				args = append(args, literalText(f.Value))
			}
		case query.KindIn:
			if len(f.Values) == 0 {
				conds = append(conds, "FALSE")
				continue
			}
			holders := make([]string, 0, len(f.Values))
			for _, v := range f.Values {
				n++
				holders = append(holders, fmt.Sprintf("$%d", n))
				args = append(args, literalText(v))
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", expr, strings.Join(holders, ", ")))
		default:
			return "", nil, fmt.Errorf("unknown filter kind %v", f.Kind)
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " AND " + strings.Join(conds, " AND "), args, nil
}

// buildOrder renders the ordering clause. Without an explicit field,
// insertion order is kept.
func buildOrder(req query.Request) (string, error) {
	if req.OrderBy == "" {
		return " ORDER BY seq", nil
	}
	if !fieldNameRe.MatchString(req.OrderBy) {
		return "", fmt.Errorf("invalid order field %q", req.OrderBy)
	}
	dir := "ASC"
	if req.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY doc->>'%s' %s, seq", req.OrderBy, dir), nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func literalText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
