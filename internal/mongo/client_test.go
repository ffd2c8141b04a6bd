package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// EnvTestMongoURI names a reachable server for the integration tests below.
const EnvTestMongoURI = "DBBRIDGE_TEST_MONGO_URI"

// newTestClient connects to a throwaway database and drops it on cleanup.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	uri := os.Getenv(EnvTestMongoURI)
	if uri == "" {
		t.Skipf("%s not set", EnvTestMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := fmt.Sprintf("dbbridge_test_%d", time.Now().UnixNano())
	c, err := Connect(ctx, types.MongoConfig{URL: uri, Name: name}, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = c.Database().Drop(ctx)
		_ = c.Disconnect(ctx)
	})
	return c
}

func TestClient_AddFindRemoveScenario(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	added := c.Add(ctx, types.MutateParams{
		Collection: "users",
		Data:       []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}},
	})
	require.Len(t, added, 2)

	first := added[0].(map[string]any)
	second := added[1].(map[string]any)
	assert.Equal(t, "a", first["name"])
	assert.Equal(t, "b", second["name"])

	firstID, ok := first[types.IDField].(string)
	require.True(t, ok)
	assert.True(t, primitive.IsValidObjectID(firstID))
	assert.NotEqual(t, firstID, second[types.IDField])

	found, err := c.Find(ctx, types.QueryParams{
		Collection: "users",
		Filters:    map[string]any{types.IDField: firstID},
	})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first, found[0])

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "users", stats[0].Name)
	assert.Equal(t, uint64(2), stats[0].Count)
	assert.Nil(t, stats[0].LatestMt)

	removed := c.Remove(ctx, types.MutateParams{
		Collection: "users",
		Data:       []any{map[string]any{types.IDField: firstID}},
	})
	require.Len(t, removed, 1)
	assert.Equal(t, firstID, removed[0].(map[string]any)[types.IDField])

	found, err = c.Find(ctx, types.QueryParams{
		Collection: "users",
		Filters:    map[string]any{types.IDField: firstID},
	})
	require.NoError(t, err)
	assert.Empty(t, found)

	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats[0].Count)
}

func TestClient_AddStripsSuppliedID(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	supplied := primitive.NewObjectID().Hex()
	added := c.Add(ctx, types.MutateParams{
		Collection: "items",
		Data: []any{
			map[string]any{types.IDField: supplied, "v": int64(1)},
			"not an object",
		},
	})
	require.Len(t, added, 1)
	assert.NotEqual(t, supplied, added[0].(map[string]any)[types.IDField])
}

func TestClient_Update(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	added := c.Add(ctx, types.MutateParams{
		Collection: "items",
		Data:       []any{map[string]any{"v": int64(1), "keep": "yes"}},
	})
	require.Len(t, added, 1)
	id := added[0].(map[string]any)[types.IDField]

	updated := c.Update(ctx, types.MutateParams{
		Collection: "items",
		Data: []any{
			map[string]any{types.IDField: id, "v": int64(2)},
			map[string]any{"v": int64(3)},
			map[string]any{types.IDField: "bogus", "v": int64(4)},
		},
	})
	require.Len(t, updated, 1)
	assert.Equal(t, map[string]any{types.IDField: id, "v": int64(2)}, updated[0])

	// Same values again modify nothing and are omitted.
	updated = c.Update(ctx, types.MutateParams{
		Collection: "items",
		Data:       []any{map[string]any{types.IDField: id, "v": int64(2)}},
	})
	assert.Empty(t, updated)

	all, err := c.FindAll(ctx, "items")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "yes", all[0].(map[string]any)["keep"])
	assert.Equal(t, int64(2), all[0].(map[string]any)["v"])
}

func TestClient_FindPagination(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	data := make([]any, 25)
	for i := range data {
		data[i] = map[string]any{"n": int64(i + 1)}
	}
	require.Len(t, c.Add(ctx, types.MutateParams{Collection: "nums", Data: data}), 25)

	page, err := c.Find(ctx, types.QueryParams{
		Collection: "nums",
		Pagination: &types.Pagination{Page: u32(2), Limit: u32(10)},
		Sort:       map[string]any{"n": int64(1)},
	})
	require.NoError(t, err)
	require.Len(t, page, 10)
	for i, item := range page {
		assert.Equal(t, int64(i+11), item.(map[string]any)["n"])
	}

	all, err := c.Find(ctx, types.QueryParams{
		Collection: "nums",
		Pagination: &types.Pagination{Limit: u32(0)},
	})
	require.NoError(t, err)
	assert.Len(t, all, 25)

	all, err = c.Find(ctx, types.QueryParams{Collection: "nums"})
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestClient_StatsLatestModified(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	c.Add(ctx, types.MutateParams{Collection: "notes", Data: []any{
		map[string]any{"mt": "2024-01-01T00:00:00Z"},
		map[string]any{"mt": "2024-06-01T10:30:00Z"},
	}})

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0].LatestMt)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC), *stats[0].LatestMt)
	assert.NotNil(t, stats[0].LatestMtFormatted)
}

func TestClient_CreateUniqueIndexes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	created := c.CreateUniqueIndexes(ctx, []types.UniqueIndexParams{
		{Collection: "users", Fields: []string{"email", "org"}},
		{Collection: "users", Fields: nil},
	})
	assert.Equal(t, []string{"users: email_1_org_1"}, created)

	first := c.Add(ctx, types.MutateParams{Collection: "users", Data: []any{
		map[string]any{"email": "a@x", "org": "o"},
	}})
	require.Len(t, first, 1)

	dup := c.Add(ctx, types.MutateParams{Collection: "users", Data: []any{
		map[string]any{"email": "a@x", "org": "o"},
	}})
	assert.Empty(t, dup)

	count, err := c.Database().Collection("users").CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestClient_Drop(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	c.Add(ctx, types.MutateParams{Collection: "gone", Data: []any{map[string]any{"x": int64(1)}}})
	require.NoError(t, c.Drop(ctx, "gone"))

	names, err := c.CollectionNames(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "gone")
}
