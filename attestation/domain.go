package attestation

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"

var (
	domainTypeHash = crypto.Keccak256Hash([]byte(domainType))

	domainArgs = abi.Arguments{
		{Type: bytes32Ty}, // type hash
		{Type: bytes32Ty}, // keccak(name)
		{Type: bytes32Ty}, // keccak(version)
		{Type: uint256Ty}, // chainId
		{Type: addressTy}, // verifyingContract
	}
)

// Domain binds signatures to one deployment so they can not be replayed
// against another network or another instance of the ledger.
type Domain struct {
	Name              string         `json:"name" yaml:"name"`
	Version           string         `json:"version" yaml:"version"`
	ChainID           uint64         `json:"chainId" yaml:"chain-id"`
	VerifyingContract common.Address `json:"verifyingContract" yaml:"verifying-contract"`
}

func (d Domain) Separator() (common.Hash, error) {
	packed, err := domainArgs.Pack(
		[32]byte(domainTypeHash),
		[32]byte(crypto.Keccak256Hash([]byte(d.Name))),
		[32]byte(crypto.Keccak256Hash([]byte(d.Version))),
		new(big.Int).SetUint64(d.ChainID),
		d.VerifyingContract,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding domain: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// TypedDataHash binds the struct hash to the domain: keccak256(0x19 0x01 || separator || structHash).
func (d Domain) TypedDataHash(structHash common.Hash) (common.Hash, error) {
	sep, err := d.Separator()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes()), nil
}

func (d Domain) IsValid() error {
	if d.Name == "" {
		return fmt.Errorf("domain name is empty")
	}
	if d.Version == "" {
		return fmt.Errorf("domain version is empty")
	}
	if d.ChainID == 0 {
		return fmt.Errorf("domain chain id is zero")
	}
	return nil
}
