// Package badgerstorage implements storage.Backend on an embedded BadgerDB.
//
// Each class is one key, "class/<id>", holding a JSON envelope with the record
// and its insertion sequence. Listing scans the prefix and orders by sequence.
package badgerstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/areduca/classbuilder/internal/logging"
	"github.com/areduca/classbuilder/pkg/core"
	"github.com/dgraph-io/badger/v4"
)

const (
	backendName = "badger"
	classPrefix = "class/"
	seqKey      = "seq/classes"
)

// Config holds configuration for the badger backend.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path     string
	InMemory bool
}

type envelope struct {
	Seq    uint64      `json:"seq"`
	Record core.Record `json:"record"`
}

// Backend implements storage.Backend using BadgerDB.
type Backend struct {
	cfg Config
	log *logging.SlogManager

	db  *badger.DB
	seq *badger.Sequence

	// serialises read-modify-write of the sequence on upsert
	writeMu sync.Mutex
}

// New creates a new badger backend. The database is opened by Init.
func New(cfg Config, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{cfg: cfg, log: logManager}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Init opens the database and its sequence.
func (b *Backend) Init(ctx context.Context) error {
	var opts badger.Options
	if b.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if b.cfg.Path == "" {
			return errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(b.cfg.Path, 0750); err != nil {
			return fmt.Errorf("create database directory %s: %w", b.cfg.Path, err)
		}
		opts = badger.DefaultOptions(b.cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithLogger(&badgerLogger{logger: b.log.Logger().With("backend", backendName)})

	db, err := badger.Open(opts)
	if err != nil {
		return core.WrapStorage(backendName, "init", fmt.Errorf("open badger database: %w", err))
	}

	seq, err := db.GetSequence([]byte(seqKey), 100)
	if err != nil {
		db.Close()
		return core.WrapStorage(backendName, "init", fmt.Errorf("open sequence: %w", err))
	}

	b.db = db
	b.seq = seq
	return nil
}

// Close releases the sequence and closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	if err := b.seq.Release(); err != nil {
		b.log.Logger().Warn("Failed to release sequence", "error", err)
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func classKey(id string) []byte {
	return []byte(classPrefix + id)
}

// Save writes the record, keeping the sequence of an existing key.
func (b *Backend) Save(ctx context.Context, ownerID string, c core.Class) (core.Class, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	err := b.db.Update(func(txn *badger.Txn) error {
		env := envelope{Record: core.Record{Class: c, OwnerID: ownerID}}

		prev, found, err := getEnvelope(txn, c.ID)
		switch {
		case err != nil && !found:
			return err
		case err == nil && found:
			env.Seq = prev.Seq
		default:
			// new or undecodable, either way it takes a fresh position
			n, err := b.seq.Next()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			env.Seq = n
		}

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return txn.Set(classKey(c.ID), data)
	})
	if err != nil {
		return core.Class{}, core.WrapStorage(backendName, "save", err)
	}
	return c, nil
}

// getEnvelope reads one key. A value that does not decode is returned as an error.
func getEnvelope(txn *badger.Txn, id string) (envelope, bool, error) {
	var env envelope
	item, err := txn.Get(classKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return env, false, nil
	}
	if err != nil {
		return env, false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &env)
	})
	if err != nil {
		return env, true, err
	}
	return env, true, nil
}

// ListByOwner scans all classes and returns the owner's in sequence order.
func (b *Backend) ListByOwner(ctx context.Context, ownerID string) ([]core.Summary, error) {
	var envs []envelope

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(classPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			var env envelope
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			})
			if err != nil {
				b.log.Logger().Warn("Skipping corrupt class record", "key", string(item.Key()), "backend", backendName, "error", err)
				continue
			}
			if env.Record.OwnerID == ownerID {
				envs = append(envs, env)
			}
		}
		return nil
	})
	if err != nil {
		return nil, core.WrapStorage(backendName, "list", err)
	}

	sort.Slice(envs, func(i, j int) bool { return envs[i].Seq < envs[j].Seq })

	out := make([]core.Summary, 0, len(envs))
	for _, env := range envs {
		out = append(out, env.Record.Summarize())
	}
	return out, nil
}

// GetByID returns the stored class, or nil when absent or undecodable.
func (b *Backend) GetByID(ctx context.Context, id string) (*core.Class, error) {
	env, found, err := b.view(id)
	if err != nil || !found {
		return nil, err
	}
	c := env.Record.Class
	return &c, nil
}

// OwnerOf reports the stored owner of a class.
func (b *Backend) OwnerOf(ctx context.Context, id string) (string, bool, error) {
	env, found, err := b.view(id)
	if err != nil || !found {
		return "", false, err
	}
	return env.Record.OwnerID, true, nil
}

func (b *Backend) view(id string) (envelope, bool, error) {
	var env envelope
	var found bool
	var decodeErr error

	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		env, found, err = getEnvelope(txn, id)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			decodeErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return env, false, core.WrapStorage(backendName, "get", err)
	}
	if decodeErr != nil {
		b.log.Logger().Warn("Skipping corrupt class record", "classId", id, "backend", backendName, "error", decodeErr)
		return env, false, nil
	}
	return env, found, nil
}

// DeleteByID removes the key for id.
func (b *Backend) DeleteByID(ctx context.Context, id string) (bool, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	var removed bool
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(classKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete(classKey(id))
	})
	if err != nil {
		return false, core.WrapStorage(backendName, "delete", err)
	}
	return removed, nil
}
