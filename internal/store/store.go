package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vk/tablegrid/internal/errdefs"
	"github.com/vk/tablegrid/internal/frame"
)

// Supported store kinds.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
	KindBadger = "badger"
)

// Key addresses one stored table.
type Key struct {
	Tag   string
	Table string
}

func (k Key) String() string { return k.Tag + "/" + k.Table }

// Store writes and reads snapshots.
type Store interface {
	Write(ctx context.Context, path, tag, table string, data *frame.Frame) error
	Read(ctx context.Context, path, tag, table string) (*frame.Frame, error)
	// List returns the keys stored under path, sorted by tag then table.
	List(ctx context.Context, path string) ([]Key, error)
	Close() error
}

// Open creates a store of the given kind. location is the database file
// for sqlite and the directory for badger; memory ignores it.
func Open(kind, location string, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(kind) {
	case KindMemory:
		return NewMemory(), nil
	case KindSQLite, "":
		s, err := OpenSQLite(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindBadger:
		b, err := OpenBadger(BadgerConfig{Path: location, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, errdefs.Validationf("store", "unknown store kind %q, want one of %s, %s, %s", kind, KindMemory, KindSQLite, KindBadger)
}

func notFound(path, tag, table string) error {
	return fmt.Errorf("path %q: %w", path, errdefs.NotFound("snapshot", Key{Tag: tag, Table: table}.String()))
}

func sortKeys(keys []Key) {
	slices.SortFunc(keys, func(a, b Key) int {
		if c := strings.Compare(a.Tag, b.Tag); c != 0 {
			return c
		}
		return strings.Compare(a.Table, b.Table)
	})
}
