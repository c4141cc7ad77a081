package keyvaluedb

import "errors"

type Reader interface {
	// Read decodes the value stored under key into value. Returns false when
	// the key is not present.
	Read(key []byte, value any) (bool, error)
}

type Writer interface {
	Write(key []byte, value any) error
	// Delete removes the key, deleting a missing key is not an error.
	Delete(key []byte) error
}

// DBTx starts read-write transactions. Every transaction must end with
// Commit or Rollback, the bolt store allows only one writer at a time.
type DBTx interface {
	StartTx() (DBTransaction, error)
}

// KeyValueDB is the persistent store of the node: state snapshots, transaction
// records and the event log.
type KeyValueDB interface {
	Reader
	Writer
	Iterable
	DBTx
}

// Iterator walks the entries in byte-wise key order.
type Iterator interface {
	Next()
	Prev()
	// Valid is false once the iterator has moved past either end.
	Valid() bool
	// Key of the current entry, nil when not valid.
	Key() []byte
	// Value decodes the current entry.
	Value(value any) error
	// Close releases the iterator, it is safe to call more than once.
	Close() error
}

// Iterable creates iterators. An iterator holds a read lock on the store
// until it is closed.
type Iterable interface {
	// First returns a forward iterator positioned on the smallest key.
	First() Iterator
	// Last returns a reverse iterator positioned on the largest key.
	Last() Iterator
	// Find returns an iterator positioned on the first key >= key.
	Find(key []byte) Iterator
}

type DBTransaction interface {
	Writer
	Reader
	Commit() error
	Rollback() error
}

// IsEmpty reports whether the store holds no entries.
func IsEmpty(db Iterable) (empty bool, err error) {
	if db == nil {
		return true, errors.New("db is nil")
	}
	it := db.First()
	defer func() { err = errors.Join(err, it.Close()) }()
	return !it.Valid(), nil
}
