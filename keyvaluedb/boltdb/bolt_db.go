package boltdb

import (
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/riskgate-org/riskgate/keyvaluedb"
	"github.com/riskgate-org/riskgate/types"
)

// All entries live in a single bucket, the key prefixes of the node separate
// the record kinds.
var bucketName = []byte("riskgate")

// ErrClosed is returned by operations on a closed database.
var ErrClosed = errors.New("bolt db is closed")

// DefaultOpenTimeout bounds the wait for the file lock held by another process.
const DefaultOpenTimeout = 3 * time.Second

type (
	BoltDB struct {
		db    *bolt.DB
		codec keyvaluedb.Codec
	}

	Option func(*config)

	config struct {
		openTimeout time.Duration
		codec       keyvaluedb.Codec
	}
)

func WithOpenTimeout(d time.Duration) Option {
	return func(c *config) {
		c.openTimeout = d
	}
}

// WithCodec replaces the CBOR codec.
func WithCodec(codec keyvaluedb.Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// New opens the database file, creating it when missing.
func New(dbFile string, opts ...Option) (*BoltDB, error) {
	c := &config{openTimeout: DefaultOpenTimeout, codec: types.Cbor}
	for _, opt := range opts {
		opt(c)
	}
	db, err := bolt.Open(dbFile, 0600, &bolt.Options{Timeout: c.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db %s: %w", dbFile, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		return nil, errors.Join(fmt.Errorf("creating bucket: %w", err), db.Close())
	}
	return &BoltDB{db: db, codec: c.codec}, nil
}

func (db *BoltDB) Path() string {
	if db.db == nil {
		return ""
	}
	return db.db.Path()
}

func (db *BoltDB) Read(key []byte, v any) (found bool, err error) {
	if err := keyvaluedb.ValidateEntry(key, v); err != nil {
		return false, err
	}
	err = db.view("read", func(b *bolt.Bucket) error {
		data := b.Get(key)
		if data == nil {
			return nil
		}
		found = true
		return db.codec.Unmarshal(data, v)
	})
	return found, err
}

func (db *BoltDB) Write(key []byte, v any) error {
	if err := keyvaluedb.ValidateEntry(key, v); err != nil {
		return err
	}
	data, err := db.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	return db.update("write", func(b *bolt.Bucket) error {
		return b.Put(key, data)
	})
}

func (db *BoltDB) Delete(key []byte) error {
	if err := keyvaluedb.ValidateKey(key); err != nil {
		return err
	}
	return db.update("delete", func(b *bolt.Bucket) error {
		return b.Delete(key)
	})
}

func (db *BoltDB) First() keyvaluedb.Iterator {
	it := db.newIterator()
	it.position(it.cursor.First)
	return it
}

func (db *BoltDB) Last() keyvaluedb.Iterator {
	it := db.newIterator()
	it.position(it.cursor.Last)
	return it
}

func (db *BoltDB) Find(key []byte) keyvaluedb.Iterator {
	it := db.newIterator()
	it.position(func() ([]byte, []byte) { return it.cursor.Seek(key) })
	return it
}

// StartTx begins a read-write transaction, it blocks while another one is open.
func (db *BoltDB) StartTx() (keyvaluedb.DBTransaction, error) {
	if db.db == nil {
		return nil, ErrClosed
	}
	tx, err := db.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("starting bolt tx: %w", err)
	}
	return &Tx{tx: tx, bucket: tx.Bucket(bucketName), codec: db.codec}, nil
}

func (db *BoltDB) Close() error {
	if db.db == nil {
		return nil
	}
	err := db.db.Close()
	db.db = nil
	return err
}

func (db *BoltDB) view(op string, fn func(b *bolt.Bucket) error) error {
	if db.db == nil {
		return ErrClosed
	}
	if err := db.db.View(func(tx *bolt.Tx) error { return fn(tx.Bucket(bucketName)) }); err != nil {
		return fmt.Errorf("bolt db %s failed: %w", op, err)
	}
	return nil
}

func (db *BoltDB) update(op string, fn func(b *bolt.Bucket) error) error {
	if db.db == nil {
		return ErrClosed
	}
	if err := db.db.Update(func(tx *bolt.Tx) error { return fn(tx.Bucket(bucketName)) }); err != nil {
		return fmt.Errorf("bolt db %s failed: %w", op, err)
	}
	return nil
}
