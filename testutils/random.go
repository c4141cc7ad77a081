package test

import (
	"crypto/rand"

	"github.com/ethereum/go-ethereum/common"
)

// RandomBytes returns n bytes from crypto/rand, it panics when the source fails.
func RandomBytes(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

// RandomHash is used for attestation refs, salts and params hashes in tests.
func RandomHash() common.Hash {
	var h common.Hash
	copy(h[:], RandomBytes(common.HashLength))
	return h
}

// RandomAddress returns an address nobody holds a key for.
func RandomAddress() common.Address {
	var a common.Address
	copy(a[:], RandomBytes(common.AddressLength))
	return a
}
