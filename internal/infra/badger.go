package infra

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerPrefix = "cache:"
	headerSize   = 16 // storedAt and expiresAt, unix nanoseconds
)

// BadgerStore is a persistent Store on top of Badger. Expiry follows the
// injected Clock rather than Badger's own TTL.
type BadgerStore struct {
	db   *badger.DB
	opts StoreOptions
}

// OpenBadgerStore opens (or creates) a store in dir. An empty dir opens an
// in-memory database.
func OpenBadgerStore(dir string, opts StoreOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %q: %w", dir, err)
	}
	return &BadgerStore{db: db, opts: opts.withDefaults()}, nil
}

func cacheKey(key string) []byte { return []byte(badgerPrefix + key) }

func encodeEntry(value []byte, storedAt, expiresAt time.Time) []byte {
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[0:8], uint64(storedAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(expiresAt.UnixNano()))
	copy(buf[headerSize:], value)
	return buf
}

func decodeEntry(buf []byte) (value []byte, storedAt, expiresAt time.Time, err error) {
	if len(buf) < headerSize {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("corrupt cache entry (%d bytes)", len(buf))
	}
	storedAt = time.Unix(0, int64(binary.BigEndian.Uint64(buf[0:8])))
	expiresAt = time.Unix(0, int64(binary.BigEndian.Uint64(buf[8:16])))
	return buf[headerSize:], storedAt, expiresAt, nil
}

// Get returns the value stored under key.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %q: %w", key, err)
	}

	value, _, expiresAt, err := decodeEntry(raw)
	if err != nil {
		return nil, err
	}
	if !s.opts.Clock.Now().Before(expiresAt) {
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Set stores value under key, evicting when the store is full.
func (s *BadgerStore) Set(key string, value []byte) error {
	now := s.opts.Clock.Now()
	return s.db.Update(func(txn *badger.Txn) error {
		k := cacheKey(key)
		if _, err := txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
			if err := s.evict(txn, now); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return txn.Set(k, encodeEntry(value, now, now.Add(s.opts.TTL)))
	})
}

type badgerMeta struct {
	key       []byte
	storedAt  time.Time
	expiresAt time.Time
}

// evict makes room for one new key inside txn.
func (s *BadgerStore) evict(txn *badger.Txn, now time.Time) error {
	metas, err := s.scan(txn)
	if err != nil {
		return err
	}
	if len(metas) < s.opts.MaxItems {
		return nil
	}

	live := metas[:0]
	for _, m := range metas {
		if !now.Before(m.expiresAt) {
			if err := txn.Delete(m.key); err != nil {
				return err
			}
			continue
		}
		live = append(live, m)
	}
	if len(live) < s.opts.MaxItems {
		return nil
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].storedAt.Equal(live[j].storedAt) {
			return string(live[i].key) < string(live[j].key)
		}
		return live[i].storedAt.Before(live[j].storedAt)
	})
	for _, m := range live[:s.opts.evictCount(len(live))] {
		if err := txn.Delete(m.key); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) scan(txn *badger.Txn) ([]badgerMeta, error) {
	prefix := []byte(badgerPrefix)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var out []badgerMeta
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		_, storedAt, expiresAt, err := decodeEntry(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, badgerMeta{key: item.KeyCopy(nil), storedAt: storedAt, expiresAt: expiresAt})
	}
	return out, nil
}

// Delete removes key.
func (s *BadgerStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(key))
	})
}

// Len returns the number of entries, expired ones included.
func (s *BadgerStore) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(badgerPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
