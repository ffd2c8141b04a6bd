package types

import (
	"context"
	"errors"
)

// IDField is the reserved primary identifier field on the wire.
const IDField = "_id"

// ModifiedTimeField holds an RFC 3339 modification time on records that track one.
const ModifiedTimeField = "mt"

// Store is the capability set shared by both engine clients.
// Bulk operations (Add, Update, Remove) are best-effort: items that cannot be
// decoded or that the engine rejects are omitted from the result instead of
// failing the call. Callers must not assume result[i] corresponds to data[i].
type Store interface {
	// Find returns the items of a collection matching the query. A missing or
	// zero limit returns the full matching set.
	Find(ctx context.Context, params QueryParams) ([]any, error)

	// FindAll returns every item of the collection without pagination.
	FindAll(ctx context.Context, collection string) ([]any, error)

	// Add inserts each item, ignoring any caller supplied identifier, and
	// returns the inserted items carrying the engine assigned identifier.
	Add(ctx context.Context, params MutateParams) []any

	// Update applies every non-identifier field of each item to the record
	// named by its identifier. Items without an identifier and no-op updates
	// are omitted.
	Update(ctx context.Context, params MutateParams) []any

	// Remove deletes the record named by each item's identifier and returns
	// the items that were actually deleted.
	Remove(ctx context.Context, params MutateParams) []any

	// Drop removes the collection.
	Drop(ctx context.Context, name string) error

	// Stats returns a point-in-time snapshot of every collection.
	Stats(ctx context.Context) ([]CollectionStats, error)

	// CollectionNames lists the user collections.
	CollectionNames(ctx context.Context) ([]string, error)

	// CreateUniqueIndexes builds one unique compound index per request and
	// returns "collection: indexName" for each index that was created.
	CreateUniqueIndexes(ctx context.Context, params []UniqueIndexParams) []string
}

// RelationalStore adds raw statement execution to Store.
// Statements are run verbatim; construction and escaping are the caller's job.
type RelationalStore interface {
	Store

	// Execute runs one statement and reports its effect.
	Execute(ctx context.Context, sql string) (ExecutionResult, error)

	// Fetch runs one query and decodes every row. Any column that cannot be
	// represented on the wire fails the whole call.
	Fetch(ctx context.Context, sql string) ([]any, error)
}

// Connection state errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
)

// Codec errors.
var (
	ErrUnsupportedType = errors.New("invalid type")
	ErrNonFiniteNumber = errors.New("invalid number")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrNotDocument     = errors.New("value is not an object")
)

// Statement building errors.
var (
	ErrInvalidName       = errors.New("invalid collection or field name")
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

// Administration errors.
var (
	ErrManifestNotFound = errors.New("backup manifest not found")
)

// Dispatch errors.
var (
	ErrUnknownAction = errors.New("invalid action")
	ErrUnknownEngine = errors.New("unknown engine")
)
