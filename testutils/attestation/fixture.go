// Package attestation builds an access registry with a validator set and
// signs attestations with the validator keys.
package attestation

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/riskgate-org/riskgate/access"
	"github.com/riskgate-org/riskgate/attestation"
	"github.com/riskgate-org/riskgate/state"
	test "github.com/riskgate-org/riskgate/testutils"
	testsig "github.com/riskgate-org/riskgate/testutils/sig"
)

var Domain = attestation.Domain{
	Name:              "riskgate",
	Version:           "1",
	ChainID:           7,
	VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000cc"),
}

type Fixture struct {
	State      *state.State
	Registry   *access.Registry
	Verifier   *attestation.Verifier
	Admin      common.Address
	Keys       []*ecdsa.PrivateKey
	Validators []common.Address
	MinSigners uint64
}

// NewFixture creates committed state with an admin, "n" validators (keys
// sorted by address) and the minimum signer count.
func NewFixture(t *testing.T, n int, minSigners uint64) *Fixture {
	t.Helper()
	s := state.NewEmptyState()
	keys, addrs := testsig.CreateSortedKeys(t, n)
	admin := test.RandomAddress()
	require.NoError(t, s.Apply(access.GrantRole(access.RoleAdmin, admin, 0)))
	for _, a := range addrs {
		require.NoError(t, s.Apply(access.GrantRole(access.RoleValidator, a, 0)))
	}
	require.NoError(t, s.Apply(access.SetMinSigners(minSigners)))
	s.Commit()
	reg := access.NewRegistry(s)
	return &Fixture{
		State:      s,
		Registry:   reg,
		Verifier:   attestation.NewVerifier(Domain, reg, reg.MinSigners),
		Admin:      admin,
		Keys:       keys,
		Validators: addrs,
		MinSigners: minSigners,
	}
}

// Grant gives the role to the address and commits the state.
func (f *Fixture) Grant(t *testing.T, role access.Role, addr common.Address) {
	t.Helper()
	require.NoError(t, f.State.Apply(access.GrantRole(role, addr, 0)))
	f.State.Commit()
}

// Attest returns an attestation about subject signed by the first
// MinSigners validators.
func (f *Fixture) Attest(t *testing.T, subject common.Address, score, deadline uint64) (*attestation.Attestation, [][]byte) {
	t.Helper()
	a := &attestation.Attestation{
		SubjectRef: test.RandomHash(),
		Subject:    subject,
		Score:      score,
		Threshold:  500_000,
		Nonce:      1,
		Deadline:   deadline,
	}
	return a, f.Sign(t, a)
}

// Sign signs the attestation with the first MinSigners validator keys.
func (f *Fixture) Sign(t *testing.T, a *attestation.Attestation) [][]byte {
	t.Helper()
	sigs, err := attestation.SignSorted(Domain, a, f.Keys[:f.MinSigners]...)
	require.NoError(t, err)
	return sigs
}
