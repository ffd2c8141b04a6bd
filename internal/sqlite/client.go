// Package sqlite implements the relational engine client over a SQLite
// database file: raw statement execution and fetch, plus the shared Store
// operations expressed as generated statements keyed by rowid.
//
// Column values are decoded from the declared column type. Text holding a
// fenced JSON block is returned as the embedded structure. Fetch is
// all-or-nothing: one undecodable column fails the whole call.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// busyTimeout lets concurrent writers wait on the file lock instead of
// failing with SQLITE_BUSY.
const busyTimeout = 5 * time.Second

// Client is a connected relational engine client. It is safe for concurrent use.
type Client struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ types.RelationalStore = (*Client)(nil)

// Open opens (creating if missing) the database file at cfg.Path.
func Open(ctx context.Context, cfg types.SQLiteConfig, logger *zap.SugaredLogger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", cfg.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	logger.Infow("opened sqlite", "path", cfg.Path)
	return &Client{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB exposes the underlying handle.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Execute runs one raw statement.
func (c *Client) Execute(ctx context.Context, stmt string) (types.ExecutionResult, error) {
	return c.exec(ctx, stmt)
}

func (c *Client) exec(ctx context.Context, stmt string, args ...any) (types.ExecutionResult, error) {
	res, err := c.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return types.ExecutionResult{}, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return types.ExecutionResult{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.ExecutionResult{}, err
	}
	return types.ExecutionResult{RowsAffected: rows, LastInsertID: id, LastInsertRow: id}, nil
}

// Fetch runs one raw query and decodes every row.
func (c *Client) Fetch(ctx context.Context, stmt string) ([]any, error) {
	return c.query(ctx, stmt)
}

func (c *Client) query(ctx context.Context, stmt string, args ...any) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	res := []any{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		item := make(map[string]any, len(cols))
		for i, col := range cols {
			v, err := decodeColumn(col.DatabaseTypeName(), values[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col.Name(), err)
			}
			item[col.Name()] = v
		}
		res = append(res, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Find selects rows by column equality with optional sort and pagination.
// Each row carries its rowid as a decimal string under _id.
func (c *Client) Find(ctx context.Context, params types.QueryParams) ([]any, error) {
	stmt, args, err := buildSelect(params)
	if err != nil {
		return nil, err
	}
	res, err := c.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", params.Collection, err)
	}
	for _, item := range res {
		stringifyID(item.(map[string]any))
	}
	return res, nil
}

// FindAll returns every row of the table in rowid order.
func (c *Client) FindAll(ctx context.Context, collection string) ([]any, error) {
	return c.Find(ctx, types.QueryParams{
		Collection: collection,
		Sort:       map[string]any{types.IDField: int64(1)},
	})
}

func stringifyID(item map[string]any) {
	if id, ok := item[types.IDField].(int64); ok {
		item[types.IDField] = strconv.FormatInt(id, 10)
	}
}

// Add inserts each object item as one row. A caller supplied _id is
// discarded; the result carries the assigned rowid.
func (c *Client) Add(ctx context.Context, params types.MutateParams) []any {
	res := make([]any, 0, len(params.Data))

	for _, raw := range params.Data {
		item, ok := raw.(map[string]any)
		if !ok {
			c.skip("add", params.Collection, types.ErrNotDocument)
			continue
		}
		fields := maps.Clone(item)
		delete(fields, types.IDField)

		stmt, args, err := buildInsert(params.Collection, fields)
		if err != nil {
			c.skip("add", params.Collection, err)
			continue
		}
		out, err := c.exec(ctx, stmt, args...)
		if err != nil {
			c.skip("add", params.Collection, err)
			continue
		}

		fields[types.IDField] = strconv.FormatInt(out.LastInsertID, 10)
		res = append(res, fields)
	}
	return res
}

// Update writes every non-identifier field of each item to the row named by
// its _id. Items without a valid _id or matching no row are omitted.
func (c *Client) Update(ctx context.Context, params types.MutateParams) []any {
	res := make([]any, 0, len(params.Data))

	for _, raw := range params.Data {
		item, ok := raw.(map[string]any)
		if !ok {
			c.skip("update", params.Collection, types.ErrNotDocument)
			continue
		}
		id, ok := parseRowID(item[types.IDField])
		if !ok {
			c.skip("update", params.Collection, types.ErrInvalidID)
			continue
		}
		fields := maps.Clone(item)
		delete(fields, types.IDField)
		if len(fields) == 0 {
			continue
		}

		stmt, args, err := buildUpdate(params.Collection, id, fields)
		if err != nil {
			c.skip("update", params.Collection, err)
			continue
		}
		out, err := c.exec(ctx, stmt, args...)
		if err != nil {
			c.skip("update", params.Collection, err)
			continue
		}
		if out.RowsAffected == 0 {
			continue
		}

		fields[types.IDField] = strconv.FormatInt(id, 10)
		res = append(res, fields)
	}
	return res
}

// Remove deletes the row named by each item's _id and returns the items
// whose row existed.
func (c *Client) Remove(ctx context.Context, params types.MutateParams) []any {
	res := make([]any, 0, len(params.Data))

	table, err := quoteTable(params.Collection)
	if err != nil {
		c.skip("remove", params.Collection, err)
		return res
	}

	for _, raw := range params.Data {
		item, ok := raw.(map[string]any)
		if !ok {
			c.skip("remove", params.Collection, types.ErrNotDocument)
			continue
		}
		id, ok := parseRowID(item[types.IDField])
		if !ok {
			c.skip("remove", params.Collection, types.ErrInvalidID)
			continue
		}

		out, err := c.exec(ctx, "DELETE FROM "+table+" WHERE rowid = ?", id)
		if err != nil {
			c.skip("remove", params.Collection, err)
			continue
		}
		if out.RowsAffected == 0 {
			continue
		}
		res = append(res, item)
	}
	return res
}

// Drop removes the table if it exists.
func (c *Client) Drop(ctx context.Context, name string) error {
	table, err := quoteTable(name)
	if err != nil {
		return err
	}
	if _, err := c.exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	return nil
}

// CollectionNames lists the user tables in name order.
func (c *Client) CollectionNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Stats returns the exact row count of every table, and the latest mt value
// for tables that have an mt column.
func (c *Client) Stats(ctx context.Context) ([]types.CollectionStats, error) {
	names, err := c.CollectionNames(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]types.CollectionStats, 0, len(names))
	for _, name := range names {
		table, err := quoteTable(name)
		if err != nil {
			return nil, err
		}

		var count int64
		if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}

		latest, err := c.latestModified(ctx, name, table)
		if err != nil {
			return nil, fmt.Errorf("latest %s: %w", name, err)
		}

		res = append(res, types.NewCollectionStats(name, uint64(count), latest))
	}
	return res, nil
}

func (c *Client) latestModified(ctx context.Context, name, table string) (*time.Time, error) {
	var has int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", name, types.ModifiedTimeField,
	).Scan(&has)
	if err != nil {
		return nil, err
	}
	if has == 0 {
		return nil, nil
	}

	var mt sql.NullString
	err = c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %[1]s FROM %[2]s ORDER BY %[1]s DESC LIMIT 1", `"`+types.ModifiedTimeField+`"`, table),
	).Scan(&mt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !mt.Valid {
		return nil, nil
	}
	return types.ParseModifiedTime(mt.String), nil
}

// CreateUniqueIndexes creates one unique index per request. A request whose
// index name already belongs to another table, or whose statement fails, is
// omitted.
func (c *Client) CreateUniqueIndexes(ctx context.Context, params []types.UniqueIndexParams) []string {
	res := make([]string, 0, len(params))

	for _, p := range params {
		stmt, name, err := buildUniqueIndex(p)
		if err != nil {
			c.skip("create index", p.Collection, err)
			continue
		}

		var owner string
		err = c.db.QueryRowContext(ctx,
			"SELECT tbl_name FROM sqlite_master WHERE type = 'index' AND name = ?", name,
		).Scan(&owner)
		if err == nil && owner != p.Collection {
			c.skip("create index", p.Collection, fmt.Errorf("index %s belongs to %s", name, owner))
			continue
		}

		if _, err := c.exec(ctx, stmt); err != nil {
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
