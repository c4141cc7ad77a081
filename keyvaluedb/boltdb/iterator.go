package boltdb

import (
	"errors"

	bolt "go.etcd.io/bbolt"

	"github.com/riskgate-org/riskgate/keyvaluedb"
)

var errIteratorInvalid = errors.New("iterator invalid")

// Itr keeps a read transaction open until Close, writers are blocked
// meanwhile only when the file needs to grow.
type Itr struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	codec  keyvaluedb.Codec
	key    []byte
	value  []byte
}

// newIterator returns an invalid iterator when the read transaction can not
// be started.
func (db *BoltDB) newIterator() *Itr {
	it := &Itr{codec: db.codec}
	if db.db == nil {
		return it
	}
	tx, err := db.db.Begin(false)
	if err != nil {
		return it
	}
	it.tx = tx
	it.cursor = tx.Bucket(bucketName).Cursor()
	return it
}

func (it *Itr) position(move func() ([]byte, []byte)) {
	if it.cursor == nil {
		it.key, it.value = nil, nil
		return
	}
	it.key, it.value = move()
}

func (it *Itr) Next() {
	if it.Valid() {
		it.position(it.cursor.Next)
	}
}

func (it *Itr) Prev() {
	if it.Valid() {
		it.position(it.cursor.Prev)
	}
}

func (it *Itr) Valid() bool {
	return it.key != nil
}

func (it *Itr) Key() []byte {
	return it.key
}

func (it *Itr) Value(v any) error {
	if !it.Valid() {
		return errIteratorInvalid
	}
	return it.codec.Unmarshal(it.value, v)
}

func (it *Itr) Close() error {
	it.key, it.value, it.cursor = nil, nil, nil
	if it.tx == nil {
		return nil
	}
	err := it.tx.Rollback()
	it.tx = nil
	return err
}
