package models

import (
	"fmt"
	"strings"
	"time"
)

// Table is the flat, export-ready form of a derived result set. Row
// cells may be nil, representing null (unknown), which renderers must
// keep distinct from zero.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// CellString renders one cell for CSV/markdown output. Nil renders as
// the empty string, timestamps as RFC 3339.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(time.RFC3339)
	case float64:
		return trimFloat(x)
	case *float64:
		if x == nil {
			return ""
		}
		return trimFloat(*x)
	case *int:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%d", *x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.6f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
