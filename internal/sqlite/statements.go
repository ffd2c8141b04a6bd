package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// identPattern restricts the column and index names taken from request
// payloads. Raw Execute and Fetch statements are not checked.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteTable returns a table name as a quoted identifier, doubling any
// embedded quote. Any name SQLite can store in sqlite_master is accepted.
func quoteTable(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}

// quote validates a column or index name and returns it as a quoted identifier.
func quote(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}
	return `"` + name + `"`, nil
}

// column maps a wire field onto a column expression; _id is the rowid.
func column(field string) (string, error) {
	if field == types.IDField {
		return "rowid", nil
	}
	return quote(field)
}

// parseRowID accepts the wire forms of a relational identifier.
func parseRowID(v any) (int64, bool) {
	switch x := v.(type) {
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildSelect renders a find request as one SELECT with bound arguments.
// Filters are column equality constraints only; sort values are 1 or -1.
func buildSelect(params types.QueryParams) (string, []any, error) {
	table, err := quoteTable(params.Collection)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var args []any
	fmt.Fprintf(&b, "SELECT rowid AS %s, * FROM %s", types.IDField, table)

	if params.Filters != nil {
		filters, ok := params.Filters.(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("%w: filters must be an object", types.ErrUnsupportedFilter)
		}
		for i, k := range sortedKeys(filters) {
			col, err := column(k)
			if err != nil {
				return "", nil, err
			}
			if i == 0 {
				b.WriteString(" WHERE ")
			} else {
				b.WriteString(" AND ")
			}

			v := filters[k]
			if k == types.IDField {
				id, ok := parseRowID(v)
				if !ok {
					return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidID, v)
				}
				v = id
			}
			switch v.(type) {
			case nil:
				fmt.Fprintf(&b, "%s IS NULL", col)
				continue
			case map[string]any, []any:
				return "", nil, fmt.Errorf("%w: %s is not a scalar", types.ErrUnsupportedFilter, k)
			}
			arg, err := encodeValue(v)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&b, "%s = ?", col)
			args = append(args, arg)
		}
	}

	if params.Sort != nil {
		spec, ok := params.Sort.(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("%w: sort must be an object", types.ErrUnsupportedFilter)
		}
		for i, k := range sortedKeys(spec) {
			col, err := column(k)
			if err != nil {
				return "", nil, err
			}
			dir, ok := parseRowID(spec[k])
			if !ok || (dir != 1 && dir != -1) {
				return "", nil, fmt.Errorf("%w: sort %s must be 1 or -1", types.ErrUnsupportedFilter, k)
			}
			if i == 0 {
				b.WriteString(" ORDER BY ")
			} else {
				b.WriteString(", ")
			}
			if dir == 1 {
				fmt.Fprintf(&b, "%s ASC", col)
			} else {
				fmt.Fprintf(&b, "%s DESC", col)
			}
		}
	}

	if params.Pagination.Bounded() {
		skip, limit := params.Pagination.Window()
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, skip)
	}
	return b.String(), args, nil
}

// buildInsert renders one INSERT for an item without its identifier.
func buildInsert(collection string, item map[string]any) (string, []any, error) {
	table, err := quoteTable(collection)
	if err != nil {
		return "", nil, err
	}
	if len(item) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", table), nil, nil
	}

	keys := sortedKeys(item)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if cols[i], err = quote(k); err != nil {
			return "", nil, err
		}
		if args[i], err = encodeValue(item[k]); err != nil {
			return "", nil, err
		}
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", ")), args, nil
}

// buildUpdate renders one UPDATE of fields on the row with the given rowid.
func buildUpdate(collection string, id int64, fields map[string]any) (string, []any, error) {
	table, err := quoteTable(collection)
	if err != nil {
		return "", nil, err
	}

	keys := sortedKeys(fields)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		col, err := quote(k)
		if err != nil {
			return "", nil, err
		}
		arg, err := encodeValue(fields[k])
		if err != nil {
			return "", nil, err
		}
		sets[i] = col + " = ?"
		args = append(args, arg)
	}
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE rowid = ?", table, strings.Join(sets, ", ")), args, nil
}

// indexName keeps the naming existing databases already carry.
func indexName(fields []string) string {
	return strings.Join(fields, "_") + "_unique_index"
}

// buildUniqueIndex renders CREATE UNIQUE INDEX for one request.
func buildUniqueIndex(p types.UniqueIndexParams) (string, string, error) {
	if len(p.Fields) == 0 {
		return "", "", fmt.Errorf("%w: no fields", types.ErrInvalidName)
	}
	table, err := quoteTable(p.Collection)
	if err != nil {
		return "", "", err
	}
	cols := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		if cols[i], err = quote(f); err != nil {
			return "", "", err
		}
	}
	name := indexName(p.Fields)
	idx, err := quote(name)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		idx, table, strings.Join(cols, ", ")), name, nil
}
