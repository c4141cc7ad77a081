package attestation

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureHex is a signature which is marshaled to JSON as hex string.
type SignatureHex = hexutil.Bytes

// Sign returns the signature of the attestation digest in R||S||V form with V in {27, 28}.
func Sign(domain Domain, a *Attestation, key *ecdsa.PrivateKey) ([]byte, error) {
	if a == nil {
		return nil, ErrAttestationIsNil
	}
	digest, err := a.Digest(domain)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("signing attestation: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// SignSorted signs the attestation with all the keys and returns the signatures
// ordered by signer address, which is the order the verifier expects.
func SignSorted(domain Domain, a *Attestation, keys ...*ecdsa.PrivateKey) ([][]byte, error) {
	sorted := make([]*ecdsa.PrivateKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		ai := crypto.PubkeyToAddress(sorted[i].PublicKey)
		aj := crypto.PubkeyToAddress(sorted[j].PublicKey)
		return bytes.Compare(ai.Bytes(), aj.Bytes()) < 0
	})
	sigs := make([][]byte, 0, len(sorted))
	for _, k := range sorted {
		sig, err := Sign(domain, a, k)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// NewSigned signs the attestation and returns the bundle handed out to callers.
func NewSigned(domain Domain, a *Attestation, keys ...*ecdsa.PrivateKey) (*Signed, error) {
	sigs, err := SignSorted(domain, a, keys...)
	if err != nil {
		return nil, err
	}
	s := &Signed{Attestation: a, Signatures: make([]SignatureHex, len(sigs))}
	for i, sig := range sigs {
		s.Signatures[i] = sig
	}
	return s, nil
}
