package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

func u32(v uint32) *uint32 { return &v }

func TestTranslate_NoOptions(t *testing.T) {
	filter, opts := translate(nil, nil, nil)
	assert.Equal(t, bson.D{}, filter)
	assert.Nil(t, opts)
}

func TestTranslate_ZeroLimitIsUnbounded(t *testing.T) {
	_, opts := translate(nil, nil, &types.Pagination{Page: u32(3), Limit: u32(0)})
	assert.Nil(t, opts)

	_, opts = translate(nil, nil, &types.Pagination{Page: u32(3)})
	assert.Nil(t, opts)
}

func TestTranslate_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		p         *types.Pagination
		wantSkip  int64
		wantLimit int64
	}{
		{name: "first page by default", p: &types.Pagination{Limit: u32(10)}, wantSkip: 0, wantLimit: 10},
		{name: "page one", p: &types.Pagination{Page: u32(1), Limit: u32(10)}, wantSkip: 0, wantLimit: 10},
		{name: "page two", p: &types.Pagination{Page: u32(2), Limit: u32(10)}, wantSkip: 10, wantLimit: 10},
		{name: "page five of three", p: &types.Pagination{Page: u32(5), Limit: u32(3)}, wantSkip: 12, wantLimit: 3},
		{name: "page zero clamps to one", p: &types.Pagination{Page: u32(0), Limit: u32(4)}, wantSkip: 0, wantLimit: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, opts := translate(nil, nil, tt.p)
			require.NotNil(t, opts)
			require.NotNil(t, opts.Skip)
			require.NotNil(t, opts.Limit)
			assert.Equal(t, tt.wantSkip, *opts.Skip)
			assert.Equal(t, tt.wantLimit, *opts.Limit)
			assert.Nil(t, opts.Sort)
		})
	}
}

func TestTranslate_SortOnly(t *testing.T) {
	_, opts := translate(nil, map[string]any{"name": int64(1)}, nil)
	require.NotNil(t, opts)
	assert.Nil(t, opts.Skip)
	assert.Nil(t, opts.Limit)
	assert.Equal(t, bson.D{{Key: "name", Value: int64(1)}}, opts.Sort)
}

func TestTranslate_SortWithPagination(t *testing.T) {
	_, opts := translate(nil, map[string]any{"n": int64(-1)}, &types.Pagination{Page: u32(2), Limit: u32(5)})
	require.NotNil(t, opts)
	assert.Equal(t, int64(5), *opts.Skip)
	assert.Equal(t, bson.D{{Key: "n", Value: int64(-1)}}, opts.Sort)
}

func TestTranslate_MalformedFilterAndSortAreDropped(t *testing.T) {
	filter, opts := translate([]any{"x"}, "name", nil)
	assert.Equal(t, bson.D{}, filter)
	assert.Nil(t, opts)
}

func TestTranslate_FilterOnID(t *testing.T) {
	oid := primitive.NewObjectID()
	filter, _ := translate(map[string]any{"_id": oid.Hex()}, nil, nil)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, filter)
}
