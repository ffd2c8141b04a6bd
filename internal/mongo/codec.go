package mongo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// toDocument converts a wire object into a BSON document. A top-level _id
// holding a well-formed hex string becomes an ObjectID; any other _id value
// is kept as given. Keys are emitted in sorted order.
func toDocument(v any) (bson.D, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, types.ErrNotDocument
	}
	doc, err := mapToD(m)
	if err != nil {
		return nil, err
	}
	for i := range doc {
		if doc[i].Key != types.IDField {
			continue
		}
		if s, ok := doc[i].Value.(string); ok {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				doc[i].Value = oid
			}
		}
	}
	return doc, nil
}

func mapToD(m map[string]any) (bson.D, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		val, err := toBSON(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		doc = append(doc, bson.E{Key: k, Value: val})
	}
	return doc, nil
}

// toBSON converts one wire value. Integral numbers become int64.
func toBSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrNonFiniteNumber, x)
		}
		return f, nil
	case map[string]any:
		return mapToD(x)
	case []any:
		arr := make(bson.A, 0, len(x))
		for i, e := range x {
			val, err := toBSON(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr = append(arr, val)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: %T", types.ErrUnsupportedType, v)
	}
}

// without returns doc minus the named key, and the removed value if present.
func without(doc bson.D, key string) (bson.D, any, bool) {
	for i, e := range doc {
		if e.Key == key {
			out := make(bson.D, 0, len(doc)-1)
			out = append(out, doc[:i]...)
			out = append(out, doc[i+1:]...)
			return out, e.Value, true
		}
	}
	return doc, nil, false
}

// lookup returns the value stored under key.
func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// fromDocument converts a BSON document into a wire object. ObjectIDs are
// rendered as 24-hex strings wherever they appear.
func fromDocument(doc bson.D) map[string]any {
	out := make(map[string]any, len(doc))
	for _, e := range doc {
		out[e.Key] = fromBSON(e.Value)
	}
	return out
}

func fromBSON(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64:
		return x
	case int32:
		return int64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case bson.D:
		return fromDocument(x)
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = fromBSON(e)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return x.String()
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(x.Data)
	case primitive.Timestamp:
		return map[string]any{"t": int64(x.T), "i": int64(x.I)}
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return fmt.Sprint(x)
	}
}
