package attestation

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	test "github.com/riskgate-org/riskgate/testutils"
	testsig "github.com/riskgate-org/riskgate/testutils/sig"
)

const testNow uint64 = 1_700_000_000

var testDomain = Domain{
	Name:              "riskgate",
	Version:           "1",
	ChainID:           5,
	VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
}

func newTestAttestation(subject common.Address) *Attestation {
	return &Attestation{
		SubjectRef: common.HexToHash("0x01"),
		Subject:    subject,
		Score:      920_000,
		Threshold:  750_000,
		Nonce:      1,
		Deadline:   testNow + 3600,
	}
}

func sign(t *testing.T, a *Attestation, keys ...*ecdsa.PrivateKey) [][]byte {
	t.Helper()
	sigs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		sig, err := Sign(testDomain, a, k)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	return sigs
}

func TestCheck_ThresholdEnforcement(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 3)
	validators := NewValidators(addrs...)
	outsider, _ := testsig.CreateKey(t)
	a := newTestAttestation(test.RandomAddress())

	t.Run("two of three in increasing order", func(t *testing.T) {
		sigs := sign(t, a, keys[0], keys[2])
		require.NoError(t, Check(a, sigs, 2, validators, testDomain, testNow))
		require.True(t, Verify(a, sigs, 2, validators, testDomain, testNow))
	})
	t.Run("all three", func(t *testing.T) {
		sigs := sign(t, a, keys...)
		require.NoError(t, Check(a, sigs, 3, validators, testDomain, testNow))
	})
	t.Run("not enough signatures", func(t *testing.T) {
		sigs := sign(t, a, keys[1])
		err := Check(a, sigs, 2, validators, testDomain, testNow)
		require.ErrorIs(t, err, ErrInsufficientSignatures)
		require.EqualError(t, err, "insufficient qualifying signatures: got 1, required 2")
	})
	t.Run("signature of non validator is not counted", func(t *testing.T) {
		sigs, err := SignSorted(testDomain, a, keys[1], outsider)
		require.NoError(t, err)
		require.ErrorIs(t, Check(a, sigs, 2, validators, testDomain, testNow), ErrInsufficientSignatures)
	})
	t.Run("no signatures", func(t *testing.T) {
		require.ErrorIs(t, Check(a, nil, 1, validators, testDomain, testNow), ErrInsufficientSignatures)
	})
	t.Run("min signers not configured", func(t *testing.T) {
		sigs := sign(t, a, keys...)
		require.ErrorIs(t, Check(a, sigs, 0, validators, testDomain, testNow), ErrMinSignersNotSet)
	})
	t.Run("nil attestation", func(t *testing.T) {
		require.ErrorIs(t, Check(nil, nil, 1, validators, testDomain, testNow), ErrAttestationIsNil)
	})
}

func TestCheck_DuplicateAndOrder(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 3)
	validators := NewValidators(addrs...)
	a := newTestAttestation(test.RandomAddress())
	digest, err := a.Digest(testDomain)
	require.NoError(t, err)

	t.Run("same signature twice counts once", func(t *testing.T) {
		sigs := sign(t, a, keys[0], keys[0])
		require.EqualValues(t, 1, CountSigners(digest, sigs, validators))
		require.ErrorIs(t, Check(a, sigs, 2, validators, testDomain, testNow), ErrInsufficientSignatures)
	})
	t.Run("decreasing order", func(t *testing.T) {
		sigs := sign(t, a, keys[2], keys[1], keys[0])
		require.EqualValues(t, 1, CountSigners(digest, sigs, validators))
	})
	t.Run("partially ordered", func(t *testing.T) {
		sigs := sign(t, a, keys[0], keys[2], keys[1])
		require.EqualValues(t, 2, CountSigners(digest, sigs, validators))
	})
	t.Run("count never exceeds distinct validators", func(t *testing.T) {
		sigs := sign(t, a, keys[0], keys[1], keys[1], keys[2], keys[2], keys[0])
		require.EqualValues(t, 3, CountSigners(digest, sigs, validators))
	})
}

func TestCheck_MalformedSignaturesAreIgnored(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 2)
	validators := NewValidators(addrs...)
	a := newTestAttestation(test.RandomAddress())
	digest, err := a.Digest(testDomain)
	require.NoError(t, err)
	good := sign(t, a, keys...)

	highS := func(sig []byte) []byte {
		n := crypto.S256().Params().N
		s := new(big.Int).SetBytes(sig[32:64])
		flipped := make([]byte, 65)
		copy(flipped, sig[:32])
		new(big.Int).Sub(n, s).FillBytes(flipped[32:64])
		flipped[64] = 27 + (1 - (sig[64] - 27))
		return flipped
	}

	cases := []struct {
		name string
		sig  []byte
	}{
		{name: "empty", sig: nil},
		{name: "too short", sig: good[0][:64]},
		{name: "too long", sig: append(append([]byte{}, good[0]...), 0)},
		{name: "invalid v", sig: append(append([]byte{}, good[0][:64]...), 35)},
		{name: "zero r and s", sig: make([]byte, 65)},
		{name: "high s", sig: highS(good[0])},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, common.Address{}, RecoverSigner(digest, tc.sig))
			sigs := [][]byte{tc.sig, good[1]}
			require.EqualValues(t, 1, CountSigners(digest, sigs, validators))
			require.ErrorIs(t, Check(a, sigs, 2, validators, testDomain, testNow), ErrInsufficientSignatures)
		})
	}

	t.Run("v in 0/1 form is accepted", func(t *testing.T) {
		sig := append([]byte{}, good[0]...)
		sig[64] -= 27
		require.Equal(t, addrs[0], RecoverSigner(digest, sig))
	})
}

func TestCheck_Deadline(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 2)
	validators := NewValidators(addrs...)

	a := newTestAttestation(test.RandomAddress())
	sigs := sign(t, a, keys...)
	require.NoError(t, Check(a, sigs, 2, validators, testDomain, a.Deadline))
	err := Check(a, sigs, 2, validators, testDomain, a.Deadline+1)
	require.ErrorIs(t, err, ErrExpired)

	a.Deadline = 0
	sigs = sign(t, a, keys...)
	require.NoError(t, Check(a, sigs, 2, validators, testDomain, ^uint64(0)))
}

func TestCheck_Score(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 1)
	validators := NewValidators(addrs...)

	t.Run("score equal to threshold", func(t *testing.T) {
		a := newTestAttestation(test.RandomAddress())
		a.Score = a.Threshold
		require.NoError(t, Check(a, sign(t, a, keys...), 1, validators, testDomain, testNow))
	})
	t.Run("score below threshold", func(t *testing.T) {
		a := newTestAttestation(test.RandomAddress())
		a.Score = a.Threshold - 1
		require.ErrorIs(t, Check(a, sign(t, a, keys...), 1, validators, testDomain, testNow), ErrScoreBelowThreshold)
	})
	t.Run("score out of range", func(t *testing.T) {
		a := newTestAttestation(test.RandomAddress())
		a.Score = ScoreScale + 1
		require.ErrorIs(t, Check(a, sign(t, a, keys...), 1, validators, testDomain, testNow), ErrScoreOutOfRange)
	})
	t.Run("threshold out of range", func(t *testing.T) {
		a := newTestAttestation(test.RandomAddress())
		a.Score = ScoreScale
		a.Threshold = ScoreScale + 1
		require.ErrorIs(t, Check(a, sign(t, a, keys...), 1, validators, testDomain, testNow), ErrScoreOutOfRange)
	})
}

func TestCheck_DomainBinding(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 1)
	validators := NewValidators(addrs...)
	a := newTestAttestation(test.RandomAddress())
	sigs := sign(t, a, keys...)

	other := testDomain
	other.ChainID++
	require.ErrorIs(t, Check(a, sigs, 1, validators, other, testNow), ErrInsufficientSignatures)

	other = testDomain
	other.VerifyingContract = test.RandomAddress()
	require.ErrorIs(t, Check(a, sigs, 1, validators, other, testNow), ErrInsufficientSignatures)

	// changing any field of the signed attestation invalidates the signatures
	b := *a
	b.Nonce++
	require.ErrorIs(t, Check(&b, sigs, 1, validators, testDomain, testNow), ErrInsufficientSignatures)
}

func TestVerifier_CheckFor(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 3)
	minSigners := uint64(2)
	v := NewVerifier(testDomain, NewValidators(addrs...), func() uint64 { return minSigners })
	require.Equal(t, testDomain, v.Domain())

	subject := test.RandomAddress()
	a := newTestAttestation(subject)
	sigs := sign(t, a, keys[0], keys[2])

	require.NoError(t, v.CheckFor(subject, a, sigs, testNow))
	err := v.CheckFor(test.RandomAddress(), a, sigs, testNow)
	require.ErrorIs(t, err, ErrSubjectMismatch)
	require.ErrorIs(t, v.CheckFor(subject, nil, sigs, testNow), ErrAttestationIsNil)

	// minimum is read on every call
	minSigners = 3
	require.ErrorIs(t, v.CheckFor(subject, a, sigs, testNow), ErrInsufficientSignatures)
}

func TestDigest(t *testing.T) {
	a := newTestAttestation(common.HexToAddress("0x0102"))
	d1, err := a.Digest(testDomain)
	require.NoError(t, err)
	d2, err := a.Digest(testDomain)
	require.NoError(t, err)
	require.Equal(t, d1, d2)

	sep, err := testDomain.Separator()
	require.NoError(t, err)
	sh, err := a.StructHash()
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), sh.Bytes()), d1)

	a.Deadline++
	d3, err := a.Digest(testDomain)
	require.NoError(t, err)
	require.NotEqual(t, d1, d3)
}

func TestDomain_IsValid(t *testing.T) {
	require.NoError(t, testDomain.IsValid())
	require.EqualError(t, Domain{Version: "1", ChainID: 1}.IsValid(), "domain name is empty")
	require.EqualError(t, Domain{Name: "x", ChainID: 1}.IsValid(), "domain version is empty")
	require.EqualError(t, Domain{Name: "x", Version: "1"}.IsValid(), "domain chain id is zero")
}

func TestNewSigned(t *testing.T) {
	keys, addrs := testsig.CreateSortedKeys(t, 3)
	a := newTestAttestation(test.RandomAddress())
	// keys given in reverse order, bundle must be sorted by signer
	s, err := NewSigned(testDomain, a, keys[2], keys[0], keys[1])
	require.NoError(t, err)
	require.Len(t, s.Signatures, 3)
	require.NoError(t, Check(s.Attestation, s.SignatureSlice(), 3, NewValidators(addrs...), testDomain, testNow))
}
