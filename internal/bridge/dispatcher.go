// Package bridge dispatches {action, data} requests to the engine clients
// and the backup layer, and serves them over HTTP.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/dbbridge/internal/backup"
	"github.com/mesh-intelligence/dbbridge/internal/conn"
	"github.com/mesh-intelligence/dbbridge/internal/mongo"
	"github.com/mesh-intelligence/dbbridge/internal/sqlite"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// Engine names.
const (
	EngineMongo  = "mongo"
	EngineSQLite = "sqlite"
)

// Action names. Some older clients send the camelCase spelling.
const (
	ActionConnect             = "connect"
	ActionFind                = "find"
	ActionAdd                 = "add"
	ActionUpdate              = "update"
	ActionRemove              = "remove"
	ActionStats               = "stats"
	ActionCreateUniqueIndexes = "create-unique-indexes"
	ActionDrop                = "drop"
	ActionExecute             = "execute"
	ActionFetch               = "fetch"
	ActionBackup              = "backup"
	ActionBackupMeta          = "backup-meta"
)

var aliases = map[string]string{
	"createUniqueIndexes": ActionCreateUniqueIndexes,
	"backupMeta":          ActionBackupMeta,
}

func canonical(action string) string {
	if a, ok := aliases[action]; ok {
		return a
	}
	return action
}

// Request is the wire envelope shared by every route.
type Request struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Dispatcher owns both engine connections for the life of the process.
type Dispatcher struct {
	cfg    types.Config
	logger *zap.SugaredLogger
	mongo  *conn.Manager[*mongo.Client]
	sqlite *conn.Manager[*sqlite.Client]
}

// NewDispatcher returns a dispatcher with both engines disconnected.
// Connection parameters are taken from cfg when a connect action arrives.
func NewDispatcher(cfg types.Config, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	d := &Dispatcher{cfg: cfg, logger: logger}

	d.mongo = conn.NewManager(EngineMongo,
		func(ctx context.Context) (*mongo.Client, error) {
			return mongo.Connect(ctx, cfg.Mongo, logger.Named(EngineMongo))
		},
		func(ctx context.Context, c *mongo.Client) error {
			return c.Disconnect(ctx)
		},
	)
	d.sqlite = conn.NewManager(EngineSQLite,
		func(ctx context.Context) (*sqlite.Client, error) {
			return sqlite.Open(ctx, cfg.SQLite, logger.Named(EngineSQLite))
		},
		func(_ context.Context, c *sqlite.Client) error {
			return c.Close()
		},
	)
	return d
}

// Close disconnects both engines. Errors from both are joined.
func (d *Dispatcher) Close(ctx context.Context) error {
	return errors.Join(d.mongo.Close(ctx), d.sqlite.Close(ctx))
}

// Store returns the connected client of the named engine.
func (d *Dispatcher) Store(engine string) (types.Store, error) {
	switch engine {
	case EngineMongo, "":
		c, err := d.mongo.Get()
		if err != nil {
			return nil, err
		}
		return c, nil
	case EngineSQLite:
		c, err := d.sqlite.Get()
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEngine, engine)
	}
}

// Connect connects the named engine. Used by the CLI, which has no wire
// request to carry the action.
func (d *Dispatcher) Connect(ctx context.Context, engine string) error {
	switch engine {
	case EngineMongo, "":
		return d.mongo.Connect(ctx)
	case EngineSQLite:
		return d.sqlite.Connect(ctx)
	default:
		return fmt.Errorf("%w: %s", types.ErrUnknownEngine, engine)
	}
}

// Mongo handles one document engine request.
func (d *Dispatcher) Mongo(ctx context.Context, req Request) (any, error) {
	action := canonical(req.Action)
	if action == ActionConnect {
		return nil, d.mongo.Connect(ctx)
	}
	client, err := d.mongo.Get()
	if err != nil {
		return nil, err
	}
	return d.storeAction(ctx, client, action, req)
}

// SQLite handles one relational engine request.
func (d *Dispatcher) SQLite(ctx context.Context, req Request) (any, error) {
	action := canonical(req.Action)
	if action == ActionConnect {
		return nil, d.sqlite.Connect(ctx)
	}
	client, err := d.sqlite.Get()
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionExecute:
		var p struct {
			SQL string `json:"sql"`
		}
		if err := decode(req.Data, &p); err != nil {
			return nil, err
		}
		return client.Execute(ctx, p.SQL)
	case ActionFetch:
		var p struct {
			SQL string `json:"sql"`
		}
		if err := decode(req.Data, &p); err != nil {
			return nil, err
		}
		return client.Fetch(ctx, p.SQL)
	}
	return d.storeAction(ctx, client, action, req)
}

// Admin handles backup requests against the engine named by data.engine,
// the document engine by default.
func (d *Dispatcher) Admin(ctx context.Context, req Request) (any, error) {
	var p struct {
		Engine string `json:"engine"`
	}
	if len(req.Data) > 0 {
		if err := decode(req.Data, &p); err != nil {
			return nil, err
		}
	}

	switch canonical(req.Action) {
	case ActionBackup:
		store, err := d.Store(p.Engine)
		if err != nil {
			return nil, err
		}
		_, err = backup.Run(ctx, store, d.backupOptions())
		return nil, err
	case ActionBackupMeta:
		return d.BackupMeta()
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownAction, req.Action)
	}
}

// Backup runs a backup of the named engine.
func (d *Dispatcher) Backup(ctx context.Context, engine string) (types.BackupManifest, error) {
	store, err := d.Store(engine)
	if err != nil {
		return types.BackupManifest{}, err
	}
	return backup.Run(ctx, store, d.backupOptions())
}

// BackupMeta reads the manifest of the last completed backup.
func (d *Dispatcher) BackupMeta() (types.BackupManifest, error) {
	return backup.ReadManifest(backup.ManifestPath(d.cfg.Backup.Dir, d.cfg.Backup.MetaFile))
}

func (d *Dispatcher) backupOptions() backup.Options {
	return backup.Options{
		Dir:          d.cfg.Backup.Dir,
		MetaFile:     d.cfg.Backup.MetaFile,
		SkipPrefixes: d.cfg.Backup.SkipPrefixes,
	}
}

// storeAction runs the actions both engines share.
func (d *Dispatcher) storeAction(ctx context.Context, store types.Store, action string, req Request) (any, error) {
	switch action {
	case ActionFind:
		var p types.QueryParams
		if err := decodeParams(req.Data, &p); err != nil {
			return nil, err
		}
		return store.Find(ctx, p)
	case ActionAdd, ActionUpdate, ActionRemove:
		var p types.MutateParams
		if err := decodeParams(req.Data, &p); err != nil {
			return nil, err
		}
		switch action {
		case ActionAdd:
			return store.Add(ctx, p), nil
		case ActionUpdate:
			return store.Update(ctx, p), nil
		default:
			return store.Remove(ctx, p), nil
		}
	case ActionStats:
		return store.Stats(ctx)
	case ActionCreateUniqueIndexes:
		var p []types.UniqueIndexParams
		if err := decodeParams(req.Data, &p); err != nil {
			return nil, err
		}
		return store.CreateUniqueIndexes(ctx, p), nil
	case ActionDrop:
		var p struct {
			Name string `json:"name"`
		}
		if err := decodeParams(req.Data, &p); err != nil {
			return nil, err
		}
		return nil, store.Drop(ctx, p.Name)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownAction, req.Action)
	}
}

// decodeParams decodes data.params when present, else data itself.
func decodeParams(data json.RawMessage, v any) error {
	var wrapper struct {
		Params json.RawMessage `json:"params"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Params) > 0 {
			data = wrapper.Params
		}
	}
	return decode(data, v)
}

// decode unmarshals data keeping numbers as json.Number, which the codecs
// turn into integer or double values.
func decode(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("null")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request data: %w", err)
	}
	return nil
}
