// Package badgerdb persists the monitored validator set in an embedded badger database.
package badgerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/canopy-network/spectroscope/module"
	"github.com/dgraph-io/badger/v4"
)

const (
	Type = "badgerdb"

	OptionDataDir  = "data_dir"
	OptionInMemory = "in_memory"
	OptionDBName   = "db_name"
	OptionColName  = "col_name"

	DefaultDBName  = "spectroscope"
	DefaultColName = "validators"
)

var _ module.Plugin = &Plugin{}

// record is the value stored under each validator key
type record struct {
	Status lib.ValidatorStatus `json:"status"`
}

// Plugin applies RaiseUpdateKeys actions to the validator collection
// Every key is stored as <db_name>/<col_name>/<hex public key>
type Plugin struct {
	name   string
	db     *badger.DB
	prefix []byte
	log    lib.LoggerI
	mu     sync.Mutex // serializes writers so transactions never conflict
}

// Factory() describes the badgerdb module type
func Factory() module.Factory {
	return module.Factory{
		Type: Type,
		Role: module.RolePlugin,
		Options: []module.ConfigOption{
			{Name: OptionDataDir, Type: module.OptionString, Description: "database directory, defaults to <data dir>/<db_name>"},
			{Name: OptionInMemory, Type: module.OptionBool, Description: "keep the database in memory only", Default: false},
			{Name: OptionDBName, Type: module.OptionString, Description: "name of the database", Default: DefaultDBName},
			{Name: OptionColName, Type: module.OptionString, Description: "name of the validator collection", Default: DefaultColName},
		},
		New: func(name string, opts module.Options, deps module.Deps) (module.Module, lib.ErrorI) {
			dbName, inMemory, path := opts.String(OptionDBName), opts.Bool(OptionInMemory), opts.String(OptionDataDir)
			if path == "" && !inMemory {
				path = filepath.Join(deps.DataDirPath, dbName)
			}
			db, err := Open(path, inMemory)
			if err != nil {
				return nil, module.ErrConnect(name, err)
			}
			return New(name, db, dbName, opts.String(OptionColName), deps.Logger), nil
		},
	}
}

// Open() opens (or creates) the badger database at path
func Open(path string, inMemory bool) (*badger.DB, lib.ErrorI) {
	if inMemory {
		path = ""
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithInMemory(inMemory).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return db, nil
}

// New() creates the plugin over an open database; the plugin owns the database from now on
func New(name string, db *badger.DB, dbName, colName string, log lib.LoggerI) *Plugin {
	return &Plugin{name: name, db: db, prefix: []byte(dbName + "/" + colName + "/"), log: log}
}

func (p *Plugin) Name() string { return p.name }

func (p *Plugin) ConsumedKinds() lib.KindSet { return lib.NewKindSet(lib.KindRaiseUpdateKeys) }

// Consume() applies every request in order and returns one result per request
func (p *Plugin) Consume(ctx context.Context, actions []lib.Action) (results []lib.Result, err lib.ErrorI) {
	for _, a := range actions {
		if e := ctx.Err(); e != nil {
			return nil, module.ErrConsumeTimeout(p.name, e)
		}
		action, ok := a.(lib.RaiseUpdateKeys)
		if !ok {
			return nil, module.ErrUnhandledKind(p.name, a.Kind())
		}
		u := action.Update
		var result lib.Result
		switch u.RequestType {
		case lib.RequestAdd:
			result, err = p.count(ctx, u.RequestType, p.add, u)
		case lib.RequestUp:
			result, err = p.count(ctx, u.RequestType, p.up, u)
		case lib.RequestDel:
			result, err = p.count(ctx, u.RequestType, p.del, u)
		case lib.RequestGet:
			var keys []lib.HexBytes
			if keys, err = p.Get(u.ValidatorKeys); err == nil {
				result = lib.KeysResult{Keys: keys}
			}
		default:
			err = lib.ErrUnknownRequestType(u.RequestType.String())
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return
}

// count() runs a write in one transaction and wraps the affected count
// The transaction is discarded instead of committed once ctx is done
func (p *Plugin) count(ctx context.Context, request lib.RequestType, write func(txn *badger.Txn, u lib.DatabaseUpdate) (int, lib.ErrorI), u lib.DatabaseUpdate) (lib.Result, lib.ErrorI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	var werr lib.ErrorI
	if err := p.db.Update(func(txn *badger.Txn) error {
		if n, werr = write(txn, u); werr != nil {
			return werr
		}
		if e := ctx.Err(); e != nil {
			werr = module.ErrConsumeTimeout(p.name, e)
			return werr
		}
		return nil
	}); err != nil {
		if werr != nil {
			return nil, werr
		}
		return nil, ErrStoreSet(err)
	}
	p.log.Debugf("%s affected %d of %d keys", request, n, len(u.ValidatorKeys))
	return lib.CountResult{Request: request, Count: n}, nil
}

// add() inserts absent keys with the request status; present keys are left untouched
func (p *Plugin) add(txn *badger.Txn, u lib.DatabaseUpdate) (n int, err lib.ErrorI) {
	for _, k := range dedup(u.ValidatorKeys) {
		_, found, e := p.get(txn, k)
		if e != nil {
			return 0, e
		}
		if found {
			continue
		}
		if e = p.set(txn, k, record{Status: u.Status}); e != nil {
			return 0, e
		}
		n++
	}
	return
}

// up() changes the status of present keys and counts the ones that actually changed
func (p *Plugin) up(txn *badger.Txn, u lib.DatabaseUpdate) (n int, err lib.ErrorI) {
	for _, k := range dedup(u.ValidatorKeys) {
		r, found, e := p.get(txn, k)
		if e != nil {
			return 0, e
		}
		if !found || r.Status == u.Status {
			continue
		}
		if e = p.set(txn, k, record{Status: u.Status}); e != nil {
			return 0, e
		}
		n++
	}
	return
}

// del() removes present keys
func (p *Plugin) del(txn *badger.Txn, u lib.DatabaseUpdate) (n int, err lib.ErrorI) {
	for _, k := range dedup(u.ValidatorKeys) {
		_, found, e := p.get(txn, k)
		if e != nil {
			return 0, e
		}
		if !found {
			continue
		}
		if e := txn.Delete(p.key(k)); e != nil {
			return 0, ErrStoreDelete(e)
		}
		n++
	}
	return
}

// Get() returns every stored key when keys is empty, else the subset of keys that are stored
// Keys are returned in ascending byte order
func (p *Plugin) Get(keys []lib.HexBytes) (found []lib.HexBytes, err lib.ErrorI) {
	if e := p.db.View(func(txn *badger.Txn) error {
		if len(keys) == 0 {
			found, err = p.scan(txn)
			return err
		}
		for _, k := range dedup(keys) {
			_, ok, e := p.get(txn, k)
			if e != nil {
				err = e
				return e
			}
			if ok {
				found = append(found, k)
			}
		}
		return nil
	}); e != nil && err == nil {
		err = ErrStoreGet(e)
	}
	if err != nil {
		return nil, err
	}
	return lib.SortHexBytes(found), nil
}

// Status() returns the stored status of a key
func (p *Plugin) Status(k lib.HexBytes) (status lib.ValidatorStatus, found bool, err lib.ErrorI) {
	if e := p.db.View(func(txn *badger.Txn) error {
		var r record
		r, found, err = p.get(txn, k)
		status = r.Status
		return nil
	}); e != nil && err == nil {
		err = ErrStoreGet(e)
	}
	return
}

// Close() closes the database
func (p *Plugin) Close() error {
	if err := p.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

func (p *Plugin) scan(txn *badger.Txn) (keys []lib.HexBytes, err lib.ErrorI) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues, opts.Prefix = false, p.prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(p.prefix); it.ValidForPrefix(p.prefix); it.Next() {
		k := it.Item().KeyCopy(nil)
		keys = append(keys, bytes.TrimPrefix(k, p.prefix))
	}
	return
}

func (p *Plugin) get(txn *badger.Txn, k lib.HexBytes) (r record, found bool, err lib.ErrorI) {
	item, e := txn.Get(p.key(k))
	if e != nil {
		if errors.Is(e, badger.ErrKeyNotFound) {
			return r, false, nil
		}
		return r, false, ErrStoreGet(e)
	}
	value, e := item.ValueCopy(nil)
	if e != nil {
		return r, false, ErrStoreGet(e)
	}
	if e = json.Unmarshal(value, &r); e != nil {
		return r, false, lib.ErrJSONUnmarshal(e)
	}
	return r, true, nil
}

func (p *Plugin) set(txn *badger.Txn, k lib.HexBytes, r record) lib.ErrorI {
	value, err := json.Marshal(r)
	if err != nil {
		return lib.ErrJSONMarshal(err)
	}
	if err = txn.Set(p.key(k), value); err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

func (p *Plugin) key(k lib.HexBytes) []byte {
	return append(append(make([]byte, 0, len(p.prefix)+len(k)), p.prefix...), k...)
}

// dedup() drops repeated keys, keeping the first occurrence
func dedup(keys []lib.HexBytes) (out []lib.HexBytes) {
	seen := lib.NewDeDuplicator[string]()
	for _, k := range keys {
		if !seen.Found(k.String()) {
			out = append(out, k)
		}
	}
	return
}
