package bank

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/riskgate-org/riskgate/types"
)

const (
	PayloadTypeTransfer           = "transfer"
	PayloadTypeCreateJointAccount = "createJointAccount"
	PayloadTypeJointDeposit       = "jointDeposit"
	PayloadTypeJointWithdraw      = "jointWithdraw"

	EventTransfer            types.EventType = "Transfer"
	EventJointAccountCreated types.EventType = "JointAccountCreated"
	EventJointDeposit        types.EventType = "JointDeposit"
	EventJointWithdrawal     types.EventType = "JointWithdrawal"
)

type (
	TransferAttributes struct {
		_      struct{} `cbor:",toarray"`
		To     common.Address
		Amount uint64
	}

	// CreateJointAccountAttributes - the caller becomes the first owner.
	CreateJointAccountAttributes struct {
		_      struct{} `cbor:",toarray"`
		Second common.Address
	}

	JointDepositAttributes struct {
		_       struct{} `cbor:",toarray"`
		Account common.Hash
		Amount  uint64
	}

	// JointWithdrawAttributes can be submitted by anyone, the withdrawal is
	// authorized by the signatures of both owners over WithdrawalDigest.
	JointWithdrawAttributes struct {
		_         struct{} `cbor:",toarray"`
		Account   common.Hash
		To        common.Address
		Amount    uint64
		SigFirst  []byte
		SigSecond []byte
	}
)
