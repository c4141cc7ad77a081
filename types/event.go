package types

import (
	"github.com/ethereum/go-ethereum/common"
)

type EventType string

// Event is emitted by a successfully executed transaction for off-chain indexing.
// Seq is assigned by the node when the event is persisted.
type Event struct {
	_       struct{}          `cbor:",toarray"`
	Seq     uint64            `json:"seq"`
	Type    EventType         `json:"type"`
	Subject common.Address    `json:"subject"`
	Ref     common.Hash       `json:"ref"`
	Fields  map[string]uint64 `json:"fields,omitempty"`
}

func NewEvent(typ EventType, subject common.Address) *Event {
	return &Event{Type: typ, Subject: subject}
}

// WithRef sets a reference (commitment id, attestation subject ref) and returns the event.
func (e *Event) WithRef(ref common.Hash) *Event {
	e.Ref = ref
	return e
}

// With adds a named numeric field to the event and returns the event.
func (e *Event) With(name string, value uint64) *Event {
	if e.Fields == nil {
		e.Fields = make(map[string]uint64)
	}
	e.Fields[name] = value
	return e
}
