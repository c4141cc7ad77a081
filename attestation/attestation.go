package attestation

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ScoreScale is the fixed point scale of scores and thresholds, 1e6 represents probability 1.
const ScoreScale uint64 = 1_000_000

const attestationType = "Attestation(bytes32 subjectRef,address subject,uint256 score,uint256 threshold,uint256 nonce,uint256 deadline)"

var (
	attestationTypeHash = crypto.Keccak256Hash([]byte(attestationType))

	bytes32Ty = mustNewType("bytes32")
	addressTy = mustNewType("address")
	uint256Ty = mustNewType("uint256")

	attestationArgs = abi.Arguments{
		{Type: bytes32Ty}, // type hash
		{Type: bytes32Ty}, // subjectRef
		{Type: addressTy}, // subject
		{Type: uint256Ty}, // score
		{Type: uint256Ty}, // threshold
		{Type: uint256Ty}, // nonce
		{Type: uint256Ty}, // deadline
	}
)

type (
	// Attestation is the claim signed by the validators: the risk score of
	// the subject (regarding the subjectRef) meets the threshold.
	Attestation struct {
		_          struct{}       `cbor:",toarray"`
		SubjectRef common.Hash    `json:"subjectRef"`
		Subject    common.Address `json:"subject"`
		Score      uint64         `json:"score"`
		Threshold  uint64         `json:"threshold"`
		Nonce      uint64         `json:"nonce"`
		// Deadline is unix time in seconds, 0 means no deadline.
		Deadline uint64 `json:"deadline"`
	}

	// Signed bundles the attestation with the signatures of the validators,
	// this is the form in which the oracle hands attestations to callers.
	Signed struct {
		_           struct{}       `cbor:",toarray"`
		Attestation *Attestation   `json:"attestation"`
		Signatures  []SignatureHex `json:"signatures"`
	}
)

// StructHash returns the typed structured data hash of the attestation.
func (a *Attestation) StructHash() (common.Hash, error) {
	packed, err := attestationArgs.Pack(
		[32]byte(attestationTypeHash),
		[32]byte(a.SubjectRef),
		a.Subject,
		new(big.Int).SetUint64(a.Score),
		new(big.Int).SetUint64(a.Threshold),
		new(big.Int).SetUint64(a.Nonce),
		new(big.Int).SetUint64(a.Deadline),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding attestation: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// Digest returns the domain bound hash which validators sign.
func (a *Attestation) Digest(domain Domain) (common.Hash, error) {
	structHash, err := a.StructHash()
	if err != nil {
		return common.Hash{}, err
	}
	return domain.TypedDataHash(structHash)
}

// Expired returns true when the deadline is set and "now" is past it.
func (a *Attestation) Expired(now uint64) bool {
	return a.Deadline != 0 && now > a.Deadline
}

// SignatureSlice converts the hex wrapped signatures of the bundle to raw bytes.
func (s *Signed) SignatureSlice() [][]byte {
	sigs := make([][]byte, len(s.Signatures))
	for i, sig := range s.Signatures {
		sigs[i] = sig
	}
	return sigs
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("creating abi type %s: %v", t, err))
	}
	return typ
}
