package boltdb

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/riskgate-org/riskgate/keyvaluedb"
)

// Tx is a read-write bolt transaction on the riskgate bucket.
type Tx struct {
	tx     *bolt.Tx
	bucket *bolt.Bucket
	codec  keyvaluedb.Codec
}

func (t *Tx) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.ValidateEntry(key, v); err != nil {
		return false, err
	}
	if t.tx == nil {
		return false, fmt.Errorf("bolt tx read: %w", keyvaluedb.ErrTxClosed)
	}
	data := t.bucket.Get(key)
	if data == nil {
		return false, nil
	}
	return true, t.codec.Unmarshal(data, v)
}

func (t *Tx) Write(key []byte, v any) error {
	if err := keyvaluedb.ValidateEntry(key, v); err != nil {
		return err
	}
	if t.tx == nil {
		return fmt.Errorf("bolt tx write: %w", keyvaluedb.ErrTxClosed)
	}
	data, err := t.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	return t.bucket.Put(key, data)
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.ValidateKey(key); err != nil {
		return err
	}
	if t.tx == nil {
		return fmt.Errorf("bolt tx delete: %w", keyvaluedb.ErrTxClosed)
	}
	return t.bucket.Delete(key)
}

// Rollback discards the changes, calling it on a finished tx is a no-op.
func (t *Tx) Rollback() error {
	if t.tx == nil {
		return nil
	}
	defer t.release()
	return t.tx.Rollback()
}

func (t *Tx) Commit() error {
	if t.tx == nil {
		return fmt.Errorf("bolt tx commit: %w", keyvaluedb.ErrTxClosed)
	}
	defer t.release()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("committing bolt tx: %w", err)
	}
	return nil
}

func (t *Tx) release() {
	t.tx, t.bucket = nil, nil
}
