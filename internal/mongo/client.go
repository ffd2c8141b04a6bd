// Package mongo implements the document engine client: CRUD, indexing and
// statistics over MongoDB, with wire values converted to and from BSON.
//
// Bulk operations are best-effort. An item that fails to convert or that the
// server rejects is logged at debug level and left out of the result.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// Client is a connected document engine client bound to one database.
// It is safe for concurrent use.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.SugaredLogger
}

var _ types.Store = (*Client)(nil)

// Connect dials the server at cfg.URL, verifies it answers, and binds the
// database cfg.Name.
func Connect(ctx context.Context, cfg types.MongoConfig, logger *zap.SugaredLogger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Infow("connected to mongo", "database", cfg.Name)
	return &Client{
		client: client,
		db:     client.Database(cfg.Name),
		logger: logger,
	}, nil
}

// Disconnect closes the underlying connection pool.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database returns the bound database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Find returns the documents matching params. A missing or zero limit
// returns every match.
func (c *Client) Find(ctx context.Context, params types.QueryParams) ([]any, error) {
	filter, opts := translate(params.Filters, params.Sort, params.Pagination)
	return c.find(ctx, params.Collection, filter, opts)
}

// FindAll returns every document of the collection.
func (c *Client) FindAll(ctx context.Context, collection string) ([]any, error) {
	return c.find(ctx, collection, bson.D{}, nil)
}

func (c *Client) find(ctx context.Context, collection string, filter bson.D, opts *options.FindOptions) ([]any, error) {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}

	cursor, err := c.db.Collection(collection).Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	res := []any{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		res = append(res, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return res, nil
}

// Add inserts every item with a server generated _id. A caller supplied _id
// is discarded.
func (c *Client) Add(ctx context.Context, params types.MutateParams) []any {
	coll := c.db.Collection(params.Collection)
	res := make([]any, 0, len(params.Data))

	for _, item := range params.Data {
		doc, err := toDocument(item)
		if err != nil {
			c.skip("add", params.Collection, err)
			continue
		}
		doc, _, _ = without(doc, types.IDField)

		inserted, err := coll.InsertOne(ctx, doc)
		if err != nil {
			c.skip("add", params.Collection, err)
			continue
		}
		id, ok := inserted.InsertedID.(primitive.ObjectID)
		if !ok {
			c.skip("add", params.Collection, types.ErrInvalidID)
			continue
		}

		out := fromDocument(doc)
		out[types.IDField] = id.Hex()
		res = append(res, out)
	}
	return res
}

// Update sets every field of each item on the document named by its _id.
// Items without a valid _id, and updates that modify nothing, are omitted.
func (c *Client) Update(ctx context.Context, params types.MutateParams) []any {
	coll := c.db.Collection(params.Collection)
	res := make([]any, 0, len(params.Data))

	for _, item := range params.Data {
		doc, err := toDocument(item)
		if err != nil {
			c.skip("update", params.Collection, err)
			continue
		}
		doc, raw, _ := without(doc, types.IDField)
		id, ok := raw.(primitive.ObjectID)
		if !ok {
			c.skip("update", params.Collection, types.ErrInvalidID)
			continue
		}

		updated, err := coll.UpdateOne(ctx,
			bson.D{{Key: types.IDField, Value: id}},
			bson.D{{Key: "$set", Value: doc}},
		)
		if err != nil {
			c.skip("update", params.Collection, err)
			continue
		}
		if updated.ModifiedCount == 0 {
			continue
		}

		out := fromDocument(doc)
		out[types.IDField] = id.Hex()
		res = append(res, out)
	}
	return res
}

// Remove deletes the document named by each item's _id and returns the
// items that were deleted.
func (c *Client) Remove(ctx context.Context, params types.MutateParams) []any {
	coll := c.db.Collection(params.Collection)
	res := make([]any, 0, len(params.Data))

	for _, item := range params.Data {
		doc, err := toDocument(item)
		if err != nil {
			c.skip("remove", params.Collection, err)
			continue
		}
		raw, _ := lookup(doc, types.IDField)
		id, ok := raw.(primitive.ObjectID)
		if !ok {
			c.skip("remove", params.Collection, types.ErrInvalidID)
			continue
		}

		deleted, err := coll.DeleteOne(ctx, bson.D{{Key: types.IDField, Value: id}})
		if err != nil {
			c.skip("remove", params.Collection, err)
			continue
		}
		if deleted.DeletedCount == 0 {
			continue
		}
		res = append(res, fromDocument(doc))
	}
	return res
}

// Drop removes the collection.
func (c *Client) Drop(ctx context.Context, name string) error {
	if err := c.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// CollectionNames lists the user collections in name order.
func (c *Client) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	out := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Stats returns the estimated count and the latest modification time of
// every collection.
func (c *Client) Stats(ctx context.Context) ([]types.CollectionStats, error) {
	names, err := c.CollectionNames(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]types.CollectionStats, 0, len(names))
	for _, name := range names {
		coll := c.db.Collection(name)

		count, err := coll.EstimatedDocumentCount(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}

		latest, err := c.latestModified(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("latest %s: %w", name, err)
		}

		res = append(res, types.NewCollectionStats(name, uint64(count), latest))
	}
	return res, nil
}

// latestModified reads the mt field of the most recently modified document.
func (c *Client) latestModified(ctx context.Context, coll *mongo.Collection) (*time.Time, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: types.ModifiedTimeField, Value: -1}})

	var doc bson.D
	err := coll.FindOne(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, _ := lookup(doc, types.ModifiedTimeField)
	return types.ParseModifiedTime(raw), nil
}

// CreateUniqueIndexes builds one unique ascending index per request.
// Requests the server rejects are omitted from the result.
func (c *Client) CreateUniqueIndexes(ctx context.Context, params []types.UniqueIndexParams) []string {
	res := make([]string, 0, len(params))

	for _, p := range params {
		keys := make(bson.D, 0, len(p.Fields))
		for _, f := range p.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}

		name, err := c.db.Collection(p.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			c.skip("create index", p.Collection, err)
			continue
		}
		res = append(res, fmt.Sprintf("%s: %s", p.Collection, name))
	}
	return res
}

func (c *Client) skip(op, collection string, err error) {
	c.logger.Debugw("item skipped", "op", op, "collection", collection, "error", err)
}
