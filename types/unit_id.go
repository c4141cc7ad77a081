package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UnitID identifies a record in the state. The first byte is the unit type,
// the rest is the identity of the record within that type (usually an address
// or a 32 byte hash).
type UnitID []byte

// NewUnitID creates a UnitID consisting of the typePart followed by the unitPart.
func NewUnitID(typePart byte, unitPart []byte) UnitID {
	id := make(UnitID, 1+len(unitPart))
	id[0] = typePart
	copy(id[1:], unitPart)
	return id
}

// AddressUnitID is a shortcut for unit types keyed by an address.
func AddressUnitID(typePart byte, addr common.Address) UnitID {
	return NewUnitID(typePart, addr.Bytes())
}

func (uid UnitID) Compare(key UnitID) int {
	return bytes.Compare(uid, key)
}

func (uid UnitID) String() string {
	return fmt.Sprintf("%X", []byte(uid))
}

func (uid UnitID) Eq(id UnitID) bool {
	return bytes.Equal(uid, id)
}

func (uid UnitID) HasType(typePart byte) bool {
	return len(uid) > 0 && uid[0] == typePart
}

// TypePart returns the unit type byte, zero for empty ID.
func (uid UnitID) TypePart() byte {
	if len(uid) == 0 {
		return 0
	}
	return uid[0]
}

// MarshalText encodes the ID as 0x prefixed hex, empty ID as empty text.
func (uid UnitID) MarshalText() ([]byte, error) {
	if len(uid) == 0 {
		return nil, nil
	}
	return []byte(hexutil.Encode(uid)), nil
}

func (uid *UnitID) UnmarshalText(src []byte) error {
	if len(src) == 0 {
		*uid = nil
		return nil
	}
	b, err := hexutil.Decode(string(src))
	if err != nil {
		return fmt.Errorf("decoding unit id: %w", err)
	}
	*uid = b
	return nil
}
