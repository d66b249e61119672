package mediapick

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStorage persists documents in an embedded Badger key-value store.
// Suited to long-running consumers that already carry a data directory.
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadgerStorage opens (or creates) a Badger store at dir.
func OpenBadgerStorage(dir string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStorage{db: db}, nil
}

// Close releases the underlying database.
func (b *BadgerStorage) Close() error {
	return b.db.Close()
}

func (b *BadgerStorage) Get(_ context.Context, key string, dest any) bool {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("mediapick: badger read failed, treating as empty", "key", key, "error", err.Error())
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("mediapick: unreadable storage document, treating as empty", "key", key, "error", err.Error())
		return false
	}
	return true
}

func (b *BadgerStorage) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}
