// Package badgerstore provides a BadgerDB-backed persistence port for
// on-disk snapshot storage.
package badgerstore

import (
	"context"
	"errors"
	"log"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/parallaxfi/weft/providers/persistence"
)

const keyPrefix = "snapshot:"

// Store persists snapshots in a BadgerDB directory, one key per slot.
type Store struct {
	db *badger.DB
}

// Options configures the Badger-backed store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for testing
	// against a real badger engine.
	InMemory bool
}

// Open creates or opens the store.
func Open(options Options) (*Store, error) {
	if !options.InMemory && options.Dir == "" {
		return nil, errors.New("badgerstore: Options.Dir is required for on-disk mode")
	}
	dbOptions := badger.DefaultOptions(options.Dir).WithLogger(quietLogger{})
	if options.InMemory {
		dbOptions = dbOptions.WithInMemory(true)
	}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Save overwrites the slot's snapshot.
func (s *Store) Save(_ context.Context, slot string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+slot), data)
	})
}

// Load returns the slot's last snapshot, or persistence.ErrNotFound.
func (s *Store) Load(_ context.Context, slot string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + slot))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, persistence.ErrNotFound
	}
	return data, err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// quietLogger suppresses badger's info and debug chatter.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
