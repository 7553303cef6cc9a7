// Package cache implements the semantic response cache: exact lookups
// keyed by a normalized question hash, plus approximate lookups over a
// per-tenant registry of question embeddings.
package cache

import (
	"time"

	badger "github.com/dgraph-io/badger/v4"

	cerrors "github.com/civica-ai/civica/internal/errors"
)

// fieldSep joins a namespace key and a field name into one store key.
const fieldSep = "/"

// CacheStore is the key-value surface the semantic cache runs on.
// Entries expire lazily: a read past the TTL behaves as a miss.
type CacheStore interface {
	// Get returns the value for key, or (nil, false, nil) on a miss.
	Get(key string) ([]byte, bool, error)

	// Set writes a value with a TTL. A non-positive TTL never expires.
	Set(key string, value []byte, ttl time.Duration) error

	// SetField writes one field under a namespace key, with a TTL.
	SetField(key, field string, value []byte, ttl time.Duration) error

	// GetFields returns all live fields under a namespace key.
	GetFields(key string) (map[string][]byte, error)

	Delete(key string) error

	// DeleteNamespace removes a namespace key and all its fields.
	DeleteNamespace(key string) error

	// FlushAll removes every entry in the store.
	FlushAll() error

	// CountPrefix returns the number of live keys with the given prefix.
	CountPrefix(prefix string) (int, error)

	// Ping reports whether the store is usable.
	Ping() error

	Close() error
}

// BadgerStore implements CacheStore on an embedded Badger database.
// Badger's per-entry TTL gives lazy expiry for free.
type BadgerStore struct {
	db *badger.DB
}

var _ CacheStore = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a Badger store at dir. An empty dir
// opens an in-memory store for tests.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, cerrors.CacheUnavailable(err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cerrors.CacheUnavailable(err)
	}
	return value, true, nil
}

func (s *BadgerStore) Set(key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return cerrors.CacheUnavailable(err)
	}
	return nil
}

func (s *BadgerStore) SetField(key, field string, value []byte, ttl time.Duration) error {
	return s.Set(key+fieldSep+field, value, ttl)
}

func (s *BadgerStore) GetFields(key string) (map[string][]byte, error) {
	prefix := []byte(key + fieldSep)
	fields := make(map[string][]byte)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefix):])
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fields[name] = value
		}
		return nil
	})
	if err != nil {
		return nil, cerrors.CacheUnavailable(err)
	}
	return fields, nil
}

func (s *BadgerStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && err != badger.ErrKeyNotFound {
		return cerrors.CacheUnavailable(err)
	}
	return nil
}

func (s *BadgerStore) DeleteNamespace(key string) error {
	if err := s.Delete(key); err != nil {
		return err
	}
	if err := s.db.DropPrefix([]byte(key + fieldSep)); err != nil {
		return cerrors.CacheUnavailable(err)
	}
	return nil
}

func (s *BadgerStore) FlushAll() error {
	if err := s.db.DropAll(); err != nil {
		return cerrors.CacheUnavailable(err)
	}
	return nil
}

func (s *BadgerStore) CountPrefix(prefix string) (int, error) {
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, cerrors.CacheUnavailable(err)
	}
	return count, nil
}

func (s *BadgerStore) Ping() error {
	if s.db.IsClosed() {
		return cerrors.CacheUnavailable(nil)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
