package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/riskgate-org/riskgate/attestation"
)

const jointWithdrawalType = "JointWithdrawal(bytes32 account,address to,uint256 amount,uint256 nonce)"

var (
	ErrInvalidPair          = errors.New("invalid owner pair")
	ErrFirstOwnerSignature  = errors.New("first owner signature does not verify")
	ErrSecondOwnerSignature = errors.New("second owner signature does not verify")

	jointWithdrawalTypeHash = crypto.Keccak256Hash([]byte(jointWithdrawalType))
	jointWithdrawalArgs     = abi.Arguments{
		{Type: mustNewType("bytes32")},
		{Type: mustNewType("bytes32")},
		{Type: mustNewType("address")},
		{Type: mustNewType("uint256")},
		{Type: mustNewType("uint256")},
	}
)

// Pair is the two identities of a joint account.
type Pair struct {
	_      struct{}       `cbor:",toarray"`
	First  common.Address `json:"first"`
	Second common.Address `json:"second"`
}

func NewPair(first, second common.Address) (Pair, error) {
	if first == (common.Address{}) || second == (common.Address{}) {
		return Pair{}, fmt.Errorf("%w: zero address", ErrInvalidPair)
	}
	if first == second {
		return Pair{}, fmt.Errorf("%w: owners must differ", ErrInvalidPair)
	}
	return Pair{First: first, Second: second}, nil
}

func (p Pair) Contains(addr common.Address) bool {
	return addr == p.First || addr == p.Second
}

// VerifyBoth checks that both owners signed the digest.
func (p Pair) VerifyBoth(digest common.Hash, sigFirst, sigSecond []byte) error {
	if attestation.RecoverSigner(digest, sigFirst) != p.First {
		return ErrFirstOwnerSignature
	}
	if attestation.RecoverSigner(digest, sigSecond) != p.Second {
		return ErrSecondOwnerSignature
	}
	return nil
}

// WithdrawalDigest returns the domain bound message both owners sign to
// authorize a withdrawal from the joint account.
func WithdrawalDigest(domain attestation.Domain, account common.Hash, to common.Address, amount, nonce uint64) (common.Hash, error) {
	packed, err := jointWithdrawalArgs.Pack(
		[32]byte(jointWithdrawalTypeHash),
		[32]byte(account),
		to,
		new(big.Int).SetUint64(amount),
		new(big.Int).SetUint64(nonce),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding withdrawal: %w", err)
	}
	return domain.TypedDataHash(crypto.Keccak256Hash(packed))
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Errorf("creating abi type %q: %w", t, err))
	}
	return typ
}
