package memorydb

import (
	"fmt"

	"github.com/riskgate-org/riskgate/keyvaluedb"
)

// change is a pending write, a nil data with deleted set is a pending delete.
type change struct {
	data    []byte
	deleted bool
}

// Tx buffers changes until Commit applies them to the store in one step.
// Reads see the buffered changes on top of the committed entries.
type Tx struct {
	db      *MemoryDB
	changes map[string]change
}

func (t *Tx) Read(key []byte, value any) (bool, error) {
	if err := keyvaluedb.ValidateEntry(key, value); err != nil {
		return false, err
	}
	if t.changes == nil {
		return false, fmt.Errorf("memory db tx read: %w", keyvaluedb.ErrTxClosed)
	}
	if c, ok := t.changes[string(key)]; ok {
		if c.deleted {
			return false, nil
		}
		return true, t.db.codec.Unmarshal(c.data, value)
	}
	return t.db.Read(key, value)
}

func (t *Tx) Write(key []byte, value any) error {
	data, err := t.db.encode(key, value)
	if err != nil {
		return err
	}
	if t.changes == nil {
		return fmt.Errorf("memory db tx write: %w", keyvaluedb.ErrTxClosed)
	}
	t.db.mu.RLock()
	failWrites := t.db.failWrites
	t.db.mu.RUnlock()
	if failWrites != nil {
		return failWrites
	}
	t.changes[string(key)] = change{data: data}
	return nil
}

func (t *Tx) Delete(key []byte) error {
	if err := keyvaluedb.ValidateKey(key); err != nil {
		return err
	}
	if t.changes == nil {
		return fmt.Errorf("memory db tx delete: %w", keyvaluedb.ErrTxClosed)
	}
	t.changes[string(key)] = change{deleted: true}
	return nil
}

func (t *Tx) Rollback() error {
	t.changes = nil
	return nil
}

func (t *Tx) Commit() error {
	if t.changes == nil {
		return fmt.Errorf("memory db tx commit: %w", keyvaluedb.ErrTxClosed)
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()
	for k, c := range t.changes {
		if c.deleted {
			delete(t.db.entries, k)
		} else {
			t.db.entries[k] = c.data
		}
	}
	t.changes = nil
	return nil
}
