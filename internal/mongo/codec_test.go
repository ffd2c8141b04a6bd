package mongo

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// wire decodes a JSON literal the way the dispatcher does.
func wire(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestToDocument_ParsesObjectID(t *testing.T) {
	oid := primitive.NewObjectID()
	doc, err := toDocument(wire(t, `{"_id":"`+oid.Hex()+`","name":"a"}`))
	require.NoError(t, err)

	raw, ok := lookup(doc, types.IDField)
	require.True(t, ok)
	assert.Equal(t, oid, raw)
}

func TestToDocument_MalformedIDKeptAsString(t *testing.T) {
	doc, err := toDocument(wire(t, `{"_id":"not-an-id","name":"a"}`))
	require.NoError(t, err)

	raw, ok := lookup(doc, types.IDField)
	require.True(t, ok)
	assert.Equal(t, "not-an-id", raw)

	name, _ := lookup(doc, "name")
	assert.Equal(t, "a", name)
}

func TestToDocument_RejectsNonObjects(t *testing.T) {
	for _, s := range []string{`[1,2]`, `"text"`, `3`, `null`, `true`} {
		t.Run(s, func(t *testing.T) {
			_, err := toDocument(wire(t, s))
			assert.ErrorIs(t, err, types.ErrNotDocument)
		})
	}
}

func TestToDocument_NumberKinds(t *testing.T) {
	doc, err := toDocument(wire(t, `{"i":42,"big":9007199254740993,"f":1.5,"neg":-7}`))
	require.NoError(t, err)

	i, _ := lookup(doc, "i")
	assert.Equal(t, int64(42), i)
	big, _ := lookup(doc, "big")
	assert.Equal(t, int64(9007199254740993), big)
	f, _ := lookup(doc, "f")
	assert.Equal(t, 1.5, f)
	neg, _ := lookup(doc, "neg")
	assert.Equal(t, int64(-7), neg)
}

func TestToDocument_SortedKeys(t *testing.T) {
	doc, err := toDocument(wire(t, `{"b":1,"a":2,"c":{"z":1,"y":2}}`))
	require.NoError(t, err)

	require.Len(t, doc, 3)
	assert.Equal(t, "a", doc[0].Key)
	assert.Equal(t, "b", doc[1].Key)
	assert.Equal(t, "c", doc[2].Key)

	nested, ok := doc[2].Value.(bson.D)
	require.True(t, ok)
	assert.Equal(t, "y", nested[0].Key)
}

func TestFromDocument_RendersNativeTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	got := fromDocument(bson.D{
		{Key: "_id", Value: oid},
		{Key: "ref", Value: oid},
		{Key: "n32", Value: int32(5)},
		{Key: "nan", Value: math.NaN()},
		{Key: "at", Value: primitive.NewDateTimeFromTime(when)},
		{Key: "bin", Value: primitive.Binary{Data: []byte("hi")}},
		{Key: "nested", Value: bson.D{{Key: "list", Value: bson.A{int32(1), "x", nil}}}},
	})

	assert.Equal(t, oid.Hex(), got["_id"])
	assert.Equal(t, oid.Hex(), got["ref"])
	assert.Equal(t, int64(5), got["n32"])
	assert.Nil(t, got["nan"])
	assert.Equal(t, "2024-03-01T12:00:00Z", got["at"])
	assert.Equal(t, "aGk=", got["bin"])
	assert.Equal(t, map[string]any{"list": []any{int64(1), "x", nil}}, got["nested"])
}

func TestCodec_RoundTrip(t *testing.T) {
	cases := []string{
		`{}`,
		`{"name":"a","age":30,"score":9.25,"ok":true,"none":null}`,
		`{"tags":["x","y",1,2.5,false,null],"meta":{"a":{"b":{"c":"d"}}}}`,
		`{"list":[{"k":1},{"k":[]}],"empty":{}}`,
		`{"_id":"65f0c0ffee0000000000abcd","v":-1}`,
	}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			doc, err := toDocument(wire(t, c))
			require.NoError(t, err)

			back, err := json.Marshal(fromDocument(doc))
			require.NoError(t, err)
			assert.JSONEq(t, c, string(back))
		})
	}
}

func TestWithout(t *testing.T) {
	doc := bson.D{{Key: "a", Value: 1}, {Key: "_id", Value: "x"}, {Key: "b", Value: 2}}

	rest, v, ok := without(doc, "_id")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, bson.D{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, rest)
	assert.Len(t, doc, 3, "input must not be modified")

	rest, _, ok = without(rest, "_id")
	assert.False(t, ok)
	assert.Len(t, rest, 2)
}
