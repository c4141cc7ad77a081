package memorydb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/types"
)

var errNotInitialized = errors.New("memory db is not initialized, use New")

// MemoryDB keeps encoded entries in a map. It is the default store of a node
// started without a database file and the store used by tests.
type MemoryDB struct {
	mu         sync.RWMutex
	entries    map[string][]byte
	codec      keyvaluedb.Codec
	failWrites error
}

type Option func(*MemoryDB)

// WithCodec replaces the CBOR codec.
func WithCodec(c keyvaluedb.Codec) Option {
	return func(db *MemoryDB) {
		db.codec = c
	}
}

func New(opts ...Option) *MemoryDB {
	db := &MemoryDB{
		entries: make(map[string][]byte),
		codec:   types.Cbor,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *MemoryDB) Empty() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.entries) == 0
}

func (db *MemoryDB) Read(key []byte, value any) (bool, error) {
	if err := keyvaluedb.ValidateEntry(key, value); err != nil {
		return false, err
	}
	db.mu.RLock()
	data, ok := db.entries[string(key)]
	db.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, db.codec.Unmarshal(data, value)
}

func (db *MemoryDB) Write(key []byte, value any) error {
	data, err := db.encode(key, value)
	if err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.failWrites != nil {
		return db.failWrites
	}
	db.entries[string(key)] = data
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	if err := keyvaluedb.ValidateKey(key); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.entries, string(key))
	return nil
}

func (db *MemoryDB) First() keyvaluedb.Iterator {
	it := db.snapshot()
	it.first()
	return it
}

func (db *MemoryDB) Last() keyvaluedb.Iterator {
	it := db.snapshot()
	it.last()
	return it
}

func (db *MemoryDB) Find(key []byte) keyvaluedb.Iterator {
	it := db.snapshot()
	it.seek(key)
	return it
}

func (db *MemoryDB) StartTx() (keyvaluedb.DBTransaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.entries == nil {
		return nil, fmt.Errorf("starting memory db tx: %w", errNotInitialized)
	}
	return &Tx{db: db, changes: make(map[string]change)}, nil
}

// MockWriteError makes every following write, including transactional ones,
// fail with err. Nil restores normal behavior.
func (db *MemoryDB) MockWriteError(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failWrites = err
}

func (db *MemoryDB) encode(key []byte, value any) ([]byte, error) {
	if err := keyvaluedb.ValidateEntry(key, value); err != nil {
		return nil, err
	}
	return db.codec.Marshal(value)
}

func (db *MemoryDB) snapshot() *Itr {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return newIterator(db.entries, db.codec)
}
