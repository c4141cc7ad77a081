package testsig

import (
	"bytes"
	"crypto/ecdsa"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// CreateKey generates new secp256k1 key and returns it with its address.
func CreateKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// CreateSortedKeys generates "n" keys ordered by their address (ascending).
func CreateSortedKeys(t *testing.T, n int) ([]*ecdsa.PrivateKey, []common.Address) {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		keys[i], _ = CreateKey(t)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(Address(keys[i]).Bytes(), Address(keys[j]).Bytes()) < 0
	})
	addrs := make([]common.Address, n)
	for i, k := range keys {
		addrs[i] = Address(k)
	}
	return keys, addrs
}

func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
