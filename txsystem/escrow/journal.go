package escrow

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/keyvaluedb"
)

var journalPrefix = []byte("escrow/executed/")

var errJournalEntryMissing = errors.New("journal entry missing")

type (
	// JournalStore is where the journal keeps its entries. It must not be
	// part of the revertible state.
	JournalStore interface {
		keyvaluedb.Reader
		keyvaluedb.Writer
	}

	// JournalEntry is written before the executor is called. Done is set with
	// the output once the executor has returned.
	JournalEntry struct {
		_      struct{} `cbor:",toarray"`
		Done   bool
		Output uint64
	}

	/*
	Journal records executor calls outside of the state. A reveal whose state
	change is lost, e.g. because the node failed to persist it, finds the entry
	on the next attempt and completes without calling the executor again.
	*/
	Journal struct {
		store JournalStore
	}
)

func NewJournal(store JournalStore) *Journal {
	return &Journal{store: store}
}

// Entry returns the entry of the commitment, found is false when the executor
// has never been called for it.
func (j *Journal) Entry(id common.Hash) (*JournalEntry, bool, error) {
	e := &JournalEntry{}
	found, err := j.store.Read(journalKey(id), e)
	if err != nil {
		return nil, false, fmt.Errorf("reading execution journal: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return e, true, nil
}

// begin writes the pending entry, the executor must not be called when it fails.
func (j *Journal) begin(id common.Hash) error {
	if err := j.store.Write(journalKey(id), &JournalEntry{}); err != nil {
		return fmt.Errorf("writing execution journal: %w", err)
	}
	return nil
}

func (j *Journal) complete(id common.Hash, output uint64) error {
	if err := j.store.Write(journalKey(id), &JournalEntry{Done: true, Output: output}); err != nil {
		return fmt.Errorf("writing execution journal: %w", err)
	}
	return nil
}

// abort removes the pending entry after the executor rejected the call.
func (j *Journal) abort(id common.Hash) error {
	e, found, err := j.Entry(id)
	if err != nil {
		return err
	}
	if !found {
		return errJournalEntryMissing
	}
	if e.Done {
		return fmt.Errorf("execution of %s is already complete", id)
	}
	if err := j.store.Delete(journalKey(id)); err != nil {
		return fmt.Errorf("deleting execution journal entry: %w", err)
	}
	return nil
}

func journalKey(id common.Hash) []byte {
	return append(append([]byte{}, journalPrefix...), id.Bytes()...)
}
