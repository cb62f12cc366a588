package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/vk/tablegrid/internal/frame"
)

const keySep = "\x00"

// BadgerConfig configures a badger-backed store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	// SyncWrites flushes every write to disk.
	SyncWrites bool
	// Logger receives badger's own logging. Nil disables it.
	Logger *slog.Logger
}

// Badger stores snapshots in a badger key-value database keyed by
// path, tag and table.
type Badger struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenBadger opens or creates a badger store.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger store requires a directory unless in memory")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Badger{db: db}, nil
}

func badgerKey(path, tag, table string) []byte {
	return []byte(path + keySep + tag + keySep + table)
}

func (b *Badger) Write(_ context.Context, path, tag, table string, data *frame.Frame) error {
	doc, err := data.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode table %q: %w", table, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(path, tag, table), doc)
	})
}

func (b *Badger) Read(_ context.Context, path, tag, table string) (*frame.Frame, error) {
	var doc []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(path, tag, table))
		if err != nil {
			return err
		}
		doc, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(path, tag, table)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s/%s: %w", tag, table, err)
	}
	f := new(frame.Frame)
	if err := f.UnmarshalJSON(doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s/%s: %w", tag, table, err)
	}
	return f, nil
}

func (b *Badger) List(_ context.Context, path string) ([]Key, error) {
	prefix := []byte(path + keySep)
	keys := []Key{}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			tag, table, ok := strings.Cut(rest, keySep)
			if !ok {
				continue
			}
			keys = append(keys, Key{Tag: tag, Table: table})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sortKeys(keys)
	return keys, nil
}

func (b *Badger) Close() error { return b.db.Close() }
