package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// Structured values stored in text columns are wrapped in this fence pair.
// Existing databases depend on the exact bytes.
const (
	jsonFencePrefix = "```json"
	jsonFenceSuffix = "```"
)

type columnKind int

const (
	kindDynamic columnKind = iota
	kindInteger
	kindReal
	kindText
	kindBool
	kindUnsupported
)

// kindOf classifies a declared column type. An empty declared type belongs
// to an expression column and is decoded from the runtime value.
func kindOf(declType string) columnKind {
	d := strings.ToUpper(strings.TrimSpace(declType))
	if i := strings.IndexByte(d, '('); i >= 0 {
		d = strings.TrimSpace(d[:i])
	}

	switch {
	case d == "" || d == "NULL":
		return kindDynamic
	case strings.HasPrefix(d, "BOOL"):
		return kindBool
	case strings.Contains(d, "INT"):
		return kindInteger
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return kindText
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return kindReal
	default:
		return kindUnsupported
	}
}

// decodeColumn converts one scanned column value into a wire value.
func decodeColumn(declType string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	kind := kindOf(declType)
	switch kind {
	case kindUnsupported:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedType, declType)
	case kindBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		default:
			return nil, fmt.Errorf("%w: %T in %s column", types.ErrUnsupportedType, v, declType)
		}
	}

	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, types.ErrNonFiniteNumber
		}
		return x, nil
	case string:
		return decodeText(x), nil
	case []byte:
		if kind != kindText {
			return nil, fmt.Errorf("%w: blob", types.ErrUnsupportedType)
		}
		return decodeText(string(x)), nil
	case bool:
		return x, nil
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedType, v)
	}
}

// decodeText returns the embedded JSON of a fenced value, or s itself.
func decodeText(s string) any {
	if len(s) < len(jsonFencePrefix)+len(jsonFenceSuffix) ||
		!strings.HasPrefix(s, jsonFencePrefix) || !strings.HasSuffix(s, jsonFenceSuffix) {
		return s
	}

	body := s[len(jsonFencePrefix) : len(s)-len(jsonFenceSuffix)]
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

// encodeValue converts a wire value into a statement argument. Objects and
// arrays are stored as fenced JSON text.
func encodeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrNonFiniteNumber, x)
		}
		return f, nil
	case map[string]any, []any:
		var buf bytes.Buffer
		buf.WriteString(jsonFencePrefix)
		if err := json.NewEncoder(&buf).Encode(x); err != nil {
			return nil, err
		}
		// Encode appends a newline.
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(jsonFenceSuffix)
		return buf.String(), nil
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedType, v)
	}
}
