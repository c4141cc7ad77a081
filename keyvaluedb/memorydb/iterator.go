package memorydb

import (
	"bytes"
	"errors"
	"slices"
	"sort"

	"github.com/riskgate-org/riskgate/keyvaluedb"
)

var errIteratorInvalid = errors.New("iterator invalid")

// Itr iterates over a copy of the entries taken when it was created, later
// writes are not visible to it.
type Itr struct {
	keys   [][]byte
	values [][]byte
	codec  keyvaluedb.Codec
	pos    int
}

func newIterator(entries map[string][]byte, codec keyvaluedb.Codec) *Itr {
	keys := make([][]byte, 0, len(entries))
	for k := range entries {
		keys = append(keys, []byte(k))
	}
	slices.SortFunc(keys, bytes.Compare)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = entries[string(k)]
	}
	return &Itr{keys: keys, values: values, codec: codec, pos: -1}
}

func (it *Itr) first() {
	it.moveTo(0)
}

func (it *Itr) last() {
	it.moveTo(len(it.keys) - 1)
}

func (it *Itr) seek(key []byte) {
	it.moveTo(sort.Search(len(it.keys), func(i int) bool {
		return bytes.Compare(it.keys[i], key) >= 0
	}))
}

// moveTo positions the iterator, an out of range position invalidates it.
func (it *Itr) moveTo(pos int) {
	if pos < 0 || pos >= len(it.keys) {
		it.pos = -1
		return
	}
	it.pos = pos
}

func (it *Itr) Next() {
	if it.Valid() {
		it.moveTo(it.pos + 1)
	}
}

func (it *Itr) Prev() {
	if it.Valid() {
		it.moveTo(it.pos - 1)
	}
}

func (it *Itr) Valid() bool {
	return it.pos >= 0
}

func (it *Itr) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.keys[it.pos]
}

func (it *Itr) Value(v any) error {
	if !it.Valid() {
		return errIteratorInvalid
	}
	return it.codec.Unmarshal(it.values[it.pos], v)
}

func (it *Itr) Close() error {
	it.keys, it.values, it.pos = nil, nil, -1
	return nil
}
