package attestation

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrAttestationIsNil       = errors.New("attestation is nil")
	ErrScoreOutOfRange        = errors.New("score or threshold out of range")
	ErrExpired                = errors.New("attestation deadline has passed")
	ErrScoreBelowThreshold    = errors.New("score below threshold")
	ErrInsufficientSignatures = errors.New("insufficient qualifying signatures")
	ErrSubjectMismatch        = errors.New("attestation subject mismatch")
	ErrMinSignersNotSet       = errors.New("minimum signer count is not configured")
)

type (
	// ValidatorSet answers whether the address is an authorized attestation signer.
	ValidatorSet interface {
		IsValidator(addr common.Address) bool
	}

	// MinSignersFunc returns the currently configured minimum signer count.
	MinSignersFunc func() uint64

	// Verifier checks attestations against the validator set and the
	// minimum signer count which are both read at call time, so admin
	// changes apply to the following calls.
	Verifier struct {
		domain     Domain
		validators ValidatorSet
		minSigners MinSignersFunc
	}

	// Validators is a static validator set.
	Validators map[common.Address]struct{}
)

func NewVerifier(domain Domain, validators ValidatorSet, minSigners MinSignersFunc) *Verifier {
	return &Verifier{
		domain:     domain,
		validators: validators,
		minSigners: minSigners,
	}
}

func (v *Verifier) Domain() Domain {
	return v.domain
}

// Check verifies the attestation and returns error describing the failed precondition.
func (v *Verifier) Check(a *Attestation, signatures [][]byte, now uint64) error {
	return Check(a, signatures, v.minSigners(), v.validators, v.domain, now)
}

// CheckFor is Check with the additional requirement that the attestation is about "subject".
func (v *Verifier) CheckFor(subject common.Address, a *Attestation, signatures [][]byte, now uint64) error {
	if a == nil {
		return ErrAttestationIsNil
	}
	if a.Subject != subject {
		return fmt.Errorf("%w: expected %s, got %s", ErrSubjectMismatch, subject, a.Subject)
	}
	return v.Check(a, signatures, now)
}

// Verify returns true when the attestation is valid.
func Verify(a *Attestation, signatures [][]byte, minSigners uint64, validators ValidatorSet, domain Domain, now uint64) bool {
	return Check(a, signatures, minSigners, validators, domain, now) == nil
}

/*
Check validates the attestation:
  - score and threshold are in range [0, ScoreScale];
  - deadline is either not set or "now" is not past it;
  - score is at least the threshold;
  - at least "minSigners" signatures recover to distinct validators, signers
    must be in strictly increasing address order.

Malformed signatures and signatures out of order do not cause error, they are
just not counted.
*/
func Check(a *Attestation, signatures [][]byte, minSigners uint64, validators ValidatorSet, domain Domain, now uint64) error {
	if a == nil {
		return ErrAttestationIsNil
	}
	if minSigners == 0 {
		return ErrMinSignersNotSet
	}
	if a.Score > ScoreScale || a.Threshold > ScoreScale {
		return fmt.Errorf("%w: score=%d threshold=%d", ErrScoreOutOfRange, a.Score, a.Threshold)
	}
	if a.Expired(now) {
		return fmt.Errorf("%w: deadline=%d now=%d", ErrExpired, a.Deadline, now)
	}
	if a.Score < a.Threshold {
		return fmt.Errorf("%w: score=%d threshold=%d", ErrScoreBelowThreshold, a.Score, a.Threshold)
	}
	digest, err := a.Digest(domain)
	if err != nil {
		return fmt.Errorf("calculating attestation digest: %w", err)
	}
	if cnt := CountSigners(digest, signatures, validators); cnt < minSigners {
		return fmt.Errorf("%w: got %d, required %d", ErrInsufficientSignatures, cnt, minSigners)
	}
	return nil
}

// CountSigners returns the number of signatures which recover to validators in
// strictly increasing address order.
func CountSigners(digest common.Hash, signatures [][]byte, validators ValidatorSet) uint64 {
	var cnt uint64
	var last common.Address
	for _, sig := range signatures {
		signer := RecoverSigner(digest, sig)
		if signer == (common.Address{}) {
			continue
		}
		if cnt > 0 && bytes.Compare(signer.Bytes(), last.Bytes()) <= 0 {
			continue
		}
		if !validators.IsValidator(signer) {
			continue
		}
		last = signer
		cnt++
	}
	return cnt
}

// RecoverSigner returns the signer of the digest or zero address when the
// signature is malformed.
func RecoverSigner(digest common.Hash, sig []byte) common.Address {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}
	}
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[64], r, s, true) {
		return common.Address{}
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(*pub)
}

func (v Validators) IsValidator(addr common.Address) bool {
	_, ok := v[addr]
	return ok
}

func NewValidators(addrs ...common.Address) Validators {
	v := make(Validators, len(addrs))
	for _, a := range addrs {
		v[a] = struct{}{}
	}
	return v
}
