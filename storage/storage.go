package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DE-labtory/cipherbatch"
	"github.com/dgraph-io/badger/v4"
)

var (
	ciphertextPrefix = []byte("ct/")
	eventPrefix      = []byte("ev/")
)

// DB owns the badger instance shared by the ciphertext and event stores.
type DB struct {
	db *badger.DB
}

// Open opens the database at path. inMemory ignores path and keeps nothing
// on disk.
func Open(path string, inMemory bool) (*DB, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR)
	if inMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ciphertexts() *CiphertextStore {
	return &CiphertextStore{db: d.db}
}

func (d *DB) Events() *EventStore {
	return &EventStore{db: d.db}
}

// CiphertextStore persists ciphertexts under their content handle.
type CiphertextStore struct {
	db *badger.DB
}

func ciphertextKey(h cipherbatch.Handle) []byte {
	return append(append([]byte{}, ciphertextPrefix...), h[:]...)
}

func (s *CiphertextStore) Put(ct cipherbatch.CipherText) (cipherbatch.Handle, error) {
	if len(ct) == 0 {
		return cipherbatch.Handle{}, fmt.Errorf("%w: empty ciphertext", cipherbatch.ErrInvalidArgument)
	}

	h := cipherbatch.HandleOf(ct)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(ciphertextKey(h), ct)
	})
	if err != nil {
		return cipherbatch.Handle{}, err
	}
	return h, nil
}

func (s *CiphertextStore) Get(h cipherbatch.Handle) (cipherbatch.CipherText, error) {
	var ct cipherbatch.CipherText
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ciphertextKey(h))
		if err != nil {
			return err
		}
		ct, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", cipherbatch.ErrCiphertextNotFound, h)
	}
	if err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *CiphertextStore) Has(h cipherbatch.Handle) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(ciphertextKey(h))
		return err
	})
	return err == nil
}

// EventStore archives ledger events keyed by big endian sequence number, so
// key order is event order.
type EventStore struct {
	db *badger.DB
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

func (s *EventStore) Put(evt cipherbatch.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(evt.Seq), data)
	})
}

func (s *EventStore) Range(from uint64, fn func(cipherbatch.Event) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(eventKey(from)); it.ValidForPrefix(eventPrefix); it.Next() {
			var evt cipherbatch.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &evt)
			})
			if err != nil {
				return err
			}
			if !fn(evt) {
				return nil
			}
		}
		return nil
	})
}

// LastSeq returns 0 when nothing was archived yet.
func (s *EventStore) LastSeq() (uint64, error) {
	var seq uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration seeks to the greatest key <= the seek key
		it.Seek(eventKey(^uint64(0)))
		if !it.ValidForPrefix(eventPrefix) {
			return nil
		}
		seq = binary.BigEndian.Uint64(it.Item().Key()[len(eventPrefix):])
		return nil
	})
	return seq, err
}
